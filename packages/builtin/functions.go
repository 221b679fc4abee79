package builtin

import (
	"encoding/base64"
	"fmt"
	"math/rand"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type Func func(args []string) (any, error)

// UnknownFunctionError is returned when a call names an unregistered function.
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function: %s()", e.Name)
}

type Registry struct {
	funcs map[string]Func
	fake  Generator
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithGenerator replaces the fake data source used by fake().
func WithGenerator(g Generator) RegistryOption {
	return func(r *Registry) {
		r.fake = g
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		funcs: make(map[string]Func),
		fake:  NewFaker(0),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.registerDefaults()
	return r
}

func (r *Registry) registerDefaults() {
	r.funcs["now"] = funcNow
	r.funcs["timestamp"] = funcTimestamp
	r.funcs["timestampMs"] = funcTimestampMs
	r.funcs["date"] = funcDate
	r.funcs["uuid"] = funcUUID
	r.funcs["random"] = funcRandom
	r.funcs["randomString"] = funcRandomString
	r.funcs["randomEmail"] = funcRandomEmail
	r.funcs["base64"] = funcBase64
	r.funcs["urlEncode"] = funcURLEncode
	r.funcs["lower"] = funcLower
	r.funcs["upper"] = funcUpper
	r.funcs["slug"] = funcSlug
	r.funcs["fake"] = r.funcFake
}

func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[name]
	return ok
}

var funcCallPattern = regexp.MustCompile(`^(\w+)\((.*)\)$`)

// ParseCall splits "name(a, b)" into its name and raw arguments.
// Quoted arguments keep their quotes so callers can tell literals from references.
func ParseCall(expr string) (string, []string, bool) {
	matches := funcCallPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if matches == nil {
		return "", nil, false
	}
	var args []string
	if strings.TrimSpace(matches[2]) != "" {
		args = splitArgs(matches[2])
	}
	return matches[1], args, true
}

// Invoke calls a registered function with already-resolved arguments.
func (r *Registry) Invoke(name string, args []string) (any, error) {
	fn, ok := r.funcs[name]
	if !ok {
		return nil, &UnknownFunctionError{Name: name}
	}
	return fn(args)
}

// Call parses and invokes expr, treating every argument as a literal.
func (r *Registry) Call(expr string) (any, error) {
	name, args, ok := ParseCall(expr)
	if !ok {
		return nil, fmt.Errorf("not a function call: %s", expr)
	}
	for i, a := range args {
		args[i] = Unquote(a)
	}
	return r.Invoke(name, args)
}

// IsQuoted reports whether an argument is a quoted literal.
func IsQuoted(arg string) bool {
	return len(arg) >= 2 &&
		((arg[0] == '"' && arg[len(arg)-1] == '"') || (arg[0] == '\'' && arg[len(arg)-1] == '\''))
}

func Unquote(arg string) string {
	if IsQuoted(arg) {
		return arg[1 : len(arg)-1]
	}
	return arg
}

func splitArgs(s string) []string {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := byte(0)

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case !inQuote && (ch == '"' || ch == '\''):
			inQuote = true
			quoteChar = ch
			current.WriteByte(ch)
		case inQuote && ch == quoteChar:
			inQuote = false
			quoteChar = 0
			current.WriteByte(ch)
		case !inQuote && ch == ',':
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}

	if current.Len() > 0 {
		args = append(args, strings.TrimSpace(current.String()))
	}

	return args
}

func (r *Registry) funcFake(args []string) (any, error) {
	kind := "word"
	if len(args) >= 1 {
		kind = args[0]
	}
	return r.fake.Generate(kind)
}

func funcNow(_ []string) (any, error) {
	return time.Now().UTC().Format(time.RFC3339), nil
}

func funcTimestamp(_ []string) (any, error) {
	return time.Now().Unix(), nil
}

func funcTimestampMs(_ []string) (any, error) {
	return time.Now().UnixMilli(), nil
}

func funcDate(args []string) (any, error) {
	format := "2006-01-02"
	if len(args) >= 1 {
		format = args[0]
	}
	return time.Now().UTC().Format(format), nil
}

func funcUUID(_ []string) (any, error) {
	return uuid.New().String(), nil
}

func funcRandom(args []string) (any, error) {
	min, max := 0, 100
	if len(args) >= 2 {
		var err error
		if min, err = strconv.Atoi(args[0]); err != nil {
			return nil, fmt.Errorf("random(): min argument %q is not an integer", args[0])
		}
		if max, err = strconv.Atoi(args[1]); err != nil {
			return nil, fmt.Errorf("random(): max argument %q is not an integer", args[1])
		}
	}
	if max < min {
		return nil, fmt.Errorf("random(): max %d is below min %d", max, min)
	}
	return rand.Intn(max-min+1) + min, nil
}

func funcRandomString(args []string) (any, error) {
	length := 16
	if len(args) >= 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("randomString(): length argument %q is not an integer", args[0])
		}
		length = v
	}
	return randomString(length, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"), nil
}

func funcRandomEmail(_ []string) (any, error) {
	user := randomString(8, "abcdefghijklmnopqrstuvwxyz")
	domain := randomString(6, "abcdefghijklmnopqrstuvwxyz")
	return fmt.Sprintf("%s@%s.com", user, domain), nil
}

func funcBase64(args []string) (any, error) {
	if len(args) < 1 {
		return "", nil
	}
	return base64.StdEncoding.EncodeToString([]byte(args[0])), nil
}

func funcURLEncode(args []string) (any, error) {
	if len(args) < 1 {
		return "", nil
	}
	return url.QueryEscape(args[0]), nil
}

func funcLower(args []string) (any, error) {
	if len(args) < 1 {
		return "", nil
	}
	return strings.ToLower(args[0]), nil
}

func funcUpper(args []string) (any, error) {
	if len(args) < 1 {
		return "", nil
	}
	return strings.ToUpper(args[0]), nil
}

func funcSlug(args []string) (any, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("slug(): missing text argument")
	}
	return slug.Make(args[0]), nil
}

func randomString(length int, charset string) string {
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
