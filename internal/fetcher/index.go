package fetcher

import (
	"errors"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// extractArchiveLinks collects every anchor href ending in ArchiveSuffix and
// resolves it against base.
func extractArchiveLinks(r io.Reader, base *url.URL) ([]string, error) {
	var links []string
	tokenizer := html.NewTokenizer(r)

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			if err := tokenizer.Err(); !errors.Is(err, io.EOF) {
				return links, err
			}
			return links, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			if string(tn) != "a" || !hasAttr {
				continue
			}

			for {
				key, val, more := tokenizer.TagAttr()
				if strings.EqualFold(string(key), "href") {
					href := strings.TrimSpace(string(val))
					if strings.HasSuffix(href, ArchiveSuffix) {
						if resolved := resolveURL(base, href); resolved != "" {
							links = append(links, resolved)
						}
					}
					break
				}
				if !more {
					break
				}
			}
		}
	}
}

func resolveURL(base *url.URL, rawRef string) string {
	ref, err := url.Parse(rawRef)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
