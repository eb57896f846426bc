package builtins

import (
	"strconv"
	"strings"

	perrors "github.com/metaplate/metaplate/pkg/mtl/errors"
	"github.com/metaplate/metaplate/pkg/mtl/provider"
)

// FormatProvider resolves the string-formatting helper fields. All three
// consume the statement's default sub-template as their payload: strip
// trims the rendered template, format coerces and formats it, var binds it
// to a variable name.
type FormatProvider struct{}

func (FormatProvider) Namespaces() []string {
	return []string{"strip", "format", "var"}
}

func (FormatProvider) Resolve(req *provider.Request) ([]string, bool, error) {
	switch req.Namespace {
	case "strip":
		if req.Default == nil {
			return nil, true, nil
		}
		values, err := req.EvalDefault()
		if err != nil {
			return nil, false, err
		}
		out := make([]string, len(values))
		for i, v := range values {
			out[i] = strings.TrimSpace(v)
		}
		return out, true, nil

	case "var":
		name := req.Subfield
		if name == "" || req.Default == nil {
			return nil, false, perrors.NewSyntaxError(-1,
				"var requires a name and value in form {var:NAME,VALUE}")
		}
		values, err := req.EvalDefault()
		if err != nil {
			return nil, false, err
		}
		req.Ctx.Variables[name] = values
		return []string{}, true, nil

	case "format":
		return resolveFormat(req)
	}
	return nil, false, nil
}

// resolveFormat handles {format:TYPE:FORMAT,TEMPLATE}. The format
// specification may contain '.', which the statement parser reads as an
// attribute chain, so the subfield is re-joined with the attributes here.
func resolveFormat(req *provider.Request) ([]string, bool, error) {
	spec := req.Subfield
	for _, attr := range req.Attributes {
		spec += "." + attr
	}
	typ, format, found := strings.Cut(spec, ":")
	if !found {
		return nil, false, perrors.NewSyntaxError(-1,
			"format requires a subfield in form TYPE:FORMAT")
	}
	if typ != "int" && typ != "float" && typ != "str" {
		return nil, false, perrors.NewSyntaxError(-1,
			"format type must be one of 'int', 'float', 'str', not "+strconv.Quote(typ))
	}
	if req.Default == nil {
		return nil, true, nil
	}
	values, err := req.EvalDefault()
	if err != nil {
		return nil, false, err
	}
	out := make([]string, len(values))
	for i, v := range values {
		formatted, err := formatValue(typ, format, v)
		if err != nil {
			return nil, false, err
		}
		out[i] = formatted
	}
	return out, true, nil
}

// formatSpec is a parsed format specification:
// [[fill]align][sign][#][0][width][,][.precision][type]
type formatSpec struct {
	fill      rune
	align     byte // '<', '>', '^', '=' or 0 for type default
	sign      byte // '+', '-', ' ' or 0
	alt       bool
	width     int
	comma     bool
	precision int // -1 when absent
	verb      byte
}

func parseFormatSpec(s string) formatSpec {
	spec := formatSpec{fill: ' ', precision: -1}
	runes := []rune(s)
	i := 0
	isAlign := func(r rune) bool { return r == '<' || r == '>' || r == '^' || r == '=' }
	if len(runes) >= 2 && isAlign(runes[1]) {
		spec.fill = runes[0]
		spec.align = byte(runes[1])
		i = 2
	} else if len(runes) >= 1 && isAlign(runes[0]) {
		spec.align = byte(runes[0])
		i = 1
	}
	if i < len(runes) && (runes[i] == '+' || runes[i] == '-' || runes[i] == ' ') {
		spec.sign = byte(runes[i])
		i++
	}
	if i < len(runes) && runes[i] == '#' {
		spec.alt = true
		i++
	}
	if i < len(runes) && runes[i] == '0' {
		if spec.align == 0 {
			spec.align = '='
			spec.fill = '0'
		}
		i++
	}
	for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
		spec.width = spec.width*10 + int(runes[i]-'0')
		i++
	}
	if i < len(runes) && runes[i] == ',' {
		spec.comma = true
		i++
	}
	if i < len(runes) && runes[i] == '.' {
		i++
		spec.precision = 0
		for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
			spec.precision = spec.precision*10 + int(runes[i]-'0')
			i++
		}
	}
	if i < len(runes) {
		spec.verb = byte(runes[i])
	}
	return spec
}

// formatValue coerces value to typ and renders it with the parsed spec.
func formatValue(typ, format, value string) (string, error) {
	spec := parseFormatSpec(format)
	switch typ {
	case "int":
		// Parse through float so "3.0" coerces the way int(float(v)) does.
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return "", perrors.NewCoercion("int", value)
		}
		return formatInt(int64(f), spec), nil
	case "float":
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return "", perrors.NewCoercion("float", value)
		}
		return formatFloat(f, spec), nil
	default:
		return formatString(value, spec), nil
	}
}

func formatInt(v int64, spec formatSpec) string {
	neg := v < 0
	mag := v
	if neg {
		mag = -mag
	}
	base := 10
	var prefix string
	switch spec.verb {
	case 'b':
		base = 2
		if spec.alt {
			prefix = "0b"
		}
	case 'o':
		base = 8
		if spec.alt {
			prefix = "0o"
		}
	case 'x':
		base = 16
		if spec.alt {
			prefix = "0x"
		}
	case 'X':
		base = 16
		if spec.alt {
			prefix = "0X"
		}
	}
	digits := strconv.FormatInt(mag, base)
	if spec.verb == 'X' {
		digits = strings.ToUpper(digits)
	}
	if spec.comma && base == 10 {
		digits = groupThousands(digits)
	}
	return padNumber(digits, prefix, neg, spec)
}

func formatFloat(v float64, spec formatSpec) string {
	prec := spec.precision
	verb := spec.verb
	suffix := ""
	if verb == '%' {
		v *= 100
		verb = 'f'
		suffix = "%"
	}
	var digits string
	switch verb {
	case 'e', 'E':
		if prec < 0 {
			prec = 6
		}
		digits = strconv.FormatFloat(v, verb, prec, 64)
	case 'g', 'G':
		digits = strconv.FormatFloat(v, verb, prec, 64)
	case 'f', 'F', 0:
		if prec < 0 {
			if verb == 0 {
				digits = strconv.FormatFloat(v, 'g', -1, 64)
			} else {
				digits = strconv.FormatFloat(v, 'f', 6, 64)
			}
		} else {
			digits = strconv.FormatFloat(v, 'f', prec, 64)
		}
	default:
		digits = strconv.FormatFloat(v, 'g', -1, 64)
	}
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")
	if spec.comma {
		if whole, frac, found := strings.Cut(digits, "."); found {
			digits = groupThousands(whole) + "." + frac
		} else {
			digits = groupThousands(digits)
		}
	}
	return padNumber(digits+suffix, "", neg, spec)
}

func formatString(v string, spec formatSpec) string {
	if spec.precision >= 0 {
		runes := []rune(v)
		if len(runes) > spec.precision {
			v = string(runes[:spec.precision])
		}
	}
	align := spec.align
	if align == 0 || align == '=' {
		align = '<'
	}
	return pad(v, spec.width, spec.fill, align)
}

func padNumber(digits, prefix string, neg bool, spec formatSpec) string {
	sign := ""
	switch {
	case neg:
		sign = "-"
	case spec.sign == '+':
		sign = "+"
	case spec.sign == ' ':
		sign = " "
	}
	align := spec.align
	if align == 0 {
		align = '>'
	}
	if align == '=' {
		// Pad between the sign/prefix and the digits.
		inner := spec.width - len(sign) - len(prefix)
		return sign + prefix + pad(digits, inner, spec.fill, '>')
	}
	return pad(sign+prefix+digits, spec.width, spec.fill, align)
}

func pad(s string, width int, fill rune, align byte) string {
	gap := width - len([]rune(s))
	if gap <= 0 {
		return s
	}
	filler := strings.Repeat(string(fill), gap)
	switch align {
	case '<':
		return s + filler
	case '^':
		left := gap / 2
		return strings.Repeat(string(fill), left) + s + strings.Repeat(string(fill), gap-left)
	default:
		return filler + s
	}
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var sb strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		sb.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if sb.Len() > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(digits[i : i+3])
	}
	return sb.String()
}
