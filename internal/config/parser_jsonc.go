package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	plain, err := stripJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(plain))
	decoder.DisallowUnknownFields()

	var payload fileConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, locateJSONError(plain, err)
	}
	if err := expectEOF(decoder); err != nil {
		return Config{}, nil, locateJSONError(plain, err)
	}

	return payload.materialize(base)
}

type jsoncState int

const (
	jsoncCode jsoncState = iota
	jsoncString
	jsoncEscape
	jsoncLineComment
	jsoncBlockComment
)

// stripJSONC blanks comments and trailing commas in one pass. Every removed
// byte becomes a space (newlines are kept) so decoder offsets still point at
// the original line and column.
func stripJSONC(content string) (string, error) {
	out := []byte(content)
	state := jsoncCode
	// comma is the offset of a comma that only whitespace or comments
	// have followed so far, or -1.
	comma := -1

	for i := 0; i < len(out); i++ {
		ch := out[i]
		switch state {
		case jsoncString:
			switch ch {
			case '\\':
				state = jsoncEscape
			case '"':
				state = jsoncCode
			}
		case jsoncEscape:
			state = jsoncString
		case jsoncLineComment:
			if ch == '\n' || ch == '\r' {
				state = jsoncCode
				continue
			}
			out[i] = ' '
		case jsoncBlockComment:
			if ch == '*' && i+1 < len(out) && out[i+1] == '/' {
				out[i], out[i+1] = ' ', ' '
				i++
				state = jsoncCode
				continue
			}
			if ch != '\n' && ch != '\r' && ch != '\t' {
				out[i] = ' '
			}
		case jsoncCode:
			switch {
			case ch == '/' && i+1 < len(out) && out[i+1] == '/':
				out[i], out[i+1] = ' ', ' '
				i++
				state = jsoncLineComment
			case ch == '/' && i+1 < len(out) && out[i+1] == '*':
				out[i], out[i+1] = ' ', ' '
				i++
				state = jsoncBlockComment
			case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			case ch == '}' || ch == ']':
				if comma >= 0 {
					out[comma] = ' '
				}
				comma = -1
			case ch == ',':
				comma = i
			default:
				comma = -1
				if ch == '"' {
					state = jsoncString
				}
			}
		}
	}

	if state == jsoncBlockComment {
		return "", errors.New("unterminated block comment in JSONC")
	}
	return string(out), nil
}

func expectEOF(decoder *json.Decoder) error {
	var extra json.RawMessage
	err := decoder.Decode(&extra)
	switch {
	case errors.Is(err, io.EOF):
		return nil
	case err == nil:
		return errors.New("multiple JSON values are not allowed")
	default:
		return err
	}
}

// locateJSONError prefixes decoder errors with the line and column they
// refer to.
func locateJSONError(content string, err error) error {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}
	line, col := lineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

// lineCol converts a decoder offset (one past the offending byte) to a
// 1-based position.
func lineCol(content string, offset int64) (int, int) {
	end := int(min(max(offset-1, 0), int64(len(content))))
	before := content[:end]
	line := strings.Count(before, "\n") + 1
	col := end - strings.LastIndexByte(before, '\n')
	return line, col
}
