package updater

import "regexp"

// IDExtractor synthesizes an id-column value from a file name via the
// three-stage regex pipeline: strip a matched prefix, strip a matched
// suffix, then optionally replace what remains via extractRegex's
// first capture group.
type IDExtractor struct {
	PreRegex     *regexp.Regexp
	PostRegex    *regexp.Regexp
	ExtractRegex *regexp.Regexp
}

// NewIDExtractor compiles the three configured patterns. Any empty
// pattern is left nil and skipped during Extract.
func NewIDExtractor(preExtractRegex, postExtractRegex, extractRegex string) (IDExtractor, error) {
	var ex IDExtractor
	var err error
	if preExtractRegex != "" {
		if ex.PreRegex, err = regexp.Compile(preExtractRegex); err != nil {
			return ex, err
		}
	}
	if postExtractRegex != "" {
		if ex.PostRegex, err = regexp.Compile(postExtractRegex); err != nil {
			return ex, err
		}
	}
	if extractRegex != "" {
		if ex.ExtractRegex, err = regexp.Compile(extractRegex); err != nil {
			return ex, err
		}
	}
	return ex, nil
}

// Extract derives the id value for name.
func (ex IDExtractor) Extract(name string) string {
	remainder := name
	if ex.PreRegex != nil {
		if loc := ex.PreRegex.FindStringIndex(remainder); loc != nil && loc[0] == 0 {
			remainder = remainder[loc[1]:]
		}
	}
	if ex.PostRegex != nil {
		if loc := ex.PostRegex.FindStringIndex(remainder); loc != nil && loc[1] == len(remainder) {
			remainder = remainder[:loc[0]]
		}
	}
	if ex.ExtractRegex != nil {
		if m := ex.ExtractRegex.FindStringSubmatch(remainder); m != nil {
			if len(m) > 1 {
				return m[1]
			}
			return m[0]
		}
	}
	return remainder
}
