package tatami

import (
	"reflect"
	"runtime"
	"strings"
	"unicode"
)

// splitCamel splits a CamelCase identifier into its words.
// "PostID" → ["Post", "ID"], "ShowComments" → ["Show", "Comments"].
func splitCamel(name string) []string {
	var words []string
	runes := []rune(name)
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(cur):
			boundary = true
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			// end of an initialism run: "HTTPServer" → "HTTP", "Server"
			boundary = true
		case unicode.IsDigit(prev) != unicode.IsDigit(cur) && unicode.IsLower(cur):
			boundary = true
		}
		if boundary {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	words = append(words, string(runes[start:]))
	return words
}

// snakeCase converts a Go field or method name to snake_case.
// "PostID" → "post_id", "ShowComments" → "show_comments".
func snakeCase(name string) string {
	words := splitCamel(name)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "_")
}

// headerKey derives the wire header name for a field: the snake_case
// name with underscores replaced by hyphens and each word title-cased.
// "UserAgent" → "User-Agent", "user_agent" → "User-Agent".
func headerKey(name string) string {
	var words []string
	if strings.Contains(name, "_") {
		words = strings.Split(name, "_")
	} else {
		words = splitCamel(name)
	}
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, "-")
}

// humanizeName turns a handler name into a human-friendly summary.
// "get_post_by_id" and "GetPostByID" both become "Get post by id".
func humanizeName(name string) string {
	s := snakeCase(name)
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// handlerName extracts the bare function name of a handler for use in
// summaries and template lookup. Method values and closures are trimmed
// of their runtime suffixes ("-fm", ".func1").
func handlerName(fn any) string {
	pc := reflect.ValueOf(fn).Pointer()
	f := runtime.FuncForPC(pc)
	if f == nil {
		return ""
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "-fm")
	// Methods on a receiver come through as "(*Type).Method".
	if i := strings.LastIndex(name, ")."); i >= 0 {
		name = name[i+2:]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
