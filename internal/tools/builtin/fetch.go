package builtin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/ashutoshrp06/taskloop/internal/tools"
	"github.com/ashutoshrp06/taskloop/internal/types"
)

const fetchUserAgent = "taskloop/1.0 (+https://github.com/ashutoshrp06/taskloop)"

var fetchURLDecl = types.ToolDeclaration{
	Name:        "fetch_url",
	Description: "Fetch a web page and return its title and content as markdown",
	Parameters: object(map[string]*types.Schema{
		"url": {Type: types.TypeString, Description: "The http or https URL to fetch"},
	}, "url"),
}

func fetchURL(client *http.Client, maxChars int) tools.Handler {
	converter := md.NewConverter("", true, nil)
	converter.Remove("script", "style", "nav", "footer", "noscript")

	return func(ctx context.Context, _ string, args map[string]any) (any, error) {
		rawURL := stringArg(args, "url")
		parsed, err := url.Parse(rawURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return nil, fmt.Errorf("invalid url %q: only http and https URLs are supported", rawURL)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", fetchUserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("fetch failed: status %d", resp.StatusCode)
		}

		// Read extra for markup overhead.
		body, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxChars*4)))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}

		var title, content string
		contentType := resp.Header.Get("Content-Type")
		if strings.Contains(contentType, "html") || contentType == "" {
			title, content, err = htmlToMarkdown(converter, body)
			if err != nil {
				return nil, err
			}
		} else {
			content = string(body)
		}

		content, truncated := truncateUTF8(content, maxChars)

		return map[string]any{
			"url":       resp.Request.URL.String(),
			"status":    resp.StatusCode,
			"title":     title,
			"content":   content,
			"truncated": truncated,
		}, nil
	}
}

func htmlToMarkdown(converter *md.Converter, body []byte) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	selection := doc.Find("body")
	if selection.Length() == 0 {
		selection = doc.Selection
	}
	content := strings.TrimSpace(converter.Convert(selection))
	if content == "" && title == "" {
		return "", "", errors.New("page has no readable content")
	}
	return title, content, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) (string, bool) {
	if len(s) <= n {
		return s, false
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n], true
}
