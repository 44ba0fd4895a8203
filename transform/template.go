package transform

import (
	"fmt"
	"regexp"
	"strings"
)

// compileTemplate converts a replacement format into a regexp.Expand
// template. In the format, $n refers to a numbered group, ${name} to a named
// group and a backslash escapes the next character. Group numbers are read
// greedily while they stay within the pattern's group count, so with two
// groups "$12" is group 1 followed by a literal "2".
func compileTemplate(format string, re *regexp.Regexp) (string, error) {
	groups := re.NumSubexp()
	var b strings.Builder

	for i := 0; i < len(format); i++ {
		c := format[i]
		switch c {
		case '\\':
			i++
			if i >= len(format) {
				return "", fmt.Errorf("character to be escaped is missing")
			}
			if format[i] == '$' {
				b.WriteString("$$")
			} else {
				b.WriteByte(format[i])
			}

		case '$':
			i++
			if i >= len(format) {
				return "", fmt.Errorf("illegal group reference: group index is missing")
			}
			if format[i] == '{' {
				end := strings.IndexByte(format[i:], '}')
				if end < 0 {
					return "", fmt.Errorf("named capturing group is missing trailing '}'")
				}
				name := format[i+1 : i+end]
				if name == "" || re.SubexpIndex(name) < 0 {
					return "", fmt.Errorf("no group with name {%s}", name)
				}
				b.WriteString("${" + name + "}")
				i += end
				continue
			}
			if !isDigit(format[i]) {
				return "", fmt.Errorf("illegal group reference")
			}
			ref := int(format[i] - '0')
			if ref > groups {
				return "", fmt.Errorf("no group %d", ref)
			}
			for i+1 < len(format) && isDigit(format[i+1]) {
				next := ref*10 + int(format[i+1]-'0')
				if next > groups {
					break
				}
				ref = next
				i++
			}
			fmt.Fprintf(&b, "${%d}", ref)

		default:
			b.WriteByte(c)
		}
	}

	return b.String(), nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
