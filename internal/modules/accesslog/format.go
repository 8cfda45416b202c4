package accesslog

import (
	"fmt"
	"strings"
)

type directive int

const (
	literal directive = iota
	remoteIP
	startTime
	requestLine
	status
	bytesWritten
	durationSeconds
	durationMillis
	urlPath
	requestHeader
	responseHeader
	environment
	customRequest
)

var simpleDirectives = map[byte]directive{
	'a': remoteIP,
	't': startTime,
	'r': requestLine,
	's': status,
	'b': bytesWritten,
	'T': durationSeconds,
	'D': durationMillis,
	'U': urlPath,
}

type unit struct {
	directive directive
	// text is the literal for literal units and the header, variable or
	// label name for the %{...} forms.
	text string
}

func parse(format string) ([]unit, error) {
	var (
		units []unit
		lit   strings.Builder
	)

	flush := func() {
		if lit.Len() > 0 {
			units = append(units, unit{directive: literal, text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			lit.WriteByte(c)
			continue
		}

		i++
		if i >= len(format) {
			return nil, fmt.Errorf("dangling '%%' at end of format %q", format)
		}

		switch c = format[i]; c {
		case '%':
			lit.WriteByte('%')
		case '{':
			end := strings.IndexByte(format[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated '%%{' at offset %d", i-1)
			}

			name := format[i+1 : i+end]
			if name == "" {
				return nil, fmt.Errorf("empty name in '%%{}' at offset %d", i-1)
			}
			i += end + 1

			d, width, err := namedDirective(format[i:])
			if err != nil {
				return nil, fmt.Errorf("offset %d: %w", i, err)
			}
			i += width - 1

			flush()
			units = append(units, unit{directive: d, text: name})
		default:
			d, ok := simpleDirectives[c]
			if !ok {
				return nil, fmt.Errorf("unknown directive '%%%c' at offset %d", c, i-1)
			}

			flush()
			units = append(units, unit{directive: d})
		}
	}

	flush()
	return units, nil
}

// namedDirective reads the suffix following a %{NAME} form.
func namedDirective(rest string) (directive, int, error) {
	switch {
	case strings.HasPrefix(rest, "xi"):
		return customRequest, 2, nil
	case strings.HasPrefix(rest, "i"):
		return requestHeader, 1, nil
	case strings.HasPrefix(rest, "o"):
		return responseHeader, 1, nil
	case strings.HasPrefix(rest, "e"):
		return environment, 1, nil
	default:
		return literal, 0, fmt.Errorf("expected one of 'i', 'o', 'e' or 'xi' after '%%{...}'")
	}
}
