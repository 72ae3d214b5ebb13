package subdoc

import "strings"

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func quoteKeys(keys []string) string {
	return "[" + strings.Join(keys, " ") + "]"
}
