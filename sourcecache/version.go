package sourcecache

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/graph/formats/rdf"

	"github.com/rejuve-bio/biograph/ontology"
)

// Version tokens found in the wild: dated OBO releases and dotted release
// numbers, in that order of preference.
var (
	datePattern   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	semverPattern = regexp.MustCompile(`\b\d+\.\d+(?:\.\d+)?\b`)
)

// FromGraph extracts a version token from the ontology header statements.
// The owl:versionIRI path segment is preferred over the owl:versionInfo
// literal. Returns the empty string when neither yields a token.
func FromGraph(g *ontology.Graph) string {
	for _, s := range g.Statements(ontology.IRIOWLVersionIRI) {
		if v := extractToken(ontology.IRIText(s.Object)); v != "" {
			return v
		}
	}
	for _, s := range g.Statements(ontology.IRIOWLVersionInfo) {
		text, _, kind, err := s.Object.Parts()
		if err != nil || kind != rdf.Literal {
			continue
		}
		if v := extractToken(text); v != "" {
			return v
		}
		if text = strings.TrimSpace(text); text != "" {
			return text
		}
	}
	return ""
}

// extractToken pulls a recognizable release token out of free-form text.
func extractToken(s string) string {
	if m := datePattern.FindString(s); m != "" {
		return m
	}
	return semverPattern.FindString(s)
}

// probeVersion fetches the head of the remote artifact with a byte-range
// request and scans it for a version declaration. Used only when the parsed
// graph carried no version statements. Best effort: any failure yields the
// empty string.
func (c *Cache) probeVersion(ctx context.Context, src Source, log *slog.Logger) string {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, src.URL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("Range", "bytes=0-"+strconv.FormatInt(c.cfg.ProbeBytes-1, 10))
	resp, err := c.client.Do(req)
	if err != nil {
		log.Debug("version probe failed", "error", err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		return ""
	}
	head, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.ProbeBytes))
	if err != nil {
		return ""
	}
	return scanHead(string(head))
}

// scanHead looks for OWL version declarations in the raw head of an
// artifact. Matching is restricted to versionIRI/versionInfo lines so an
// XML declaration or an arbitrary date elsewhere in the header is not
// picked up.
func scanHead(head string) string {
	for _, line := range strings.Split(head, "\n") {
		if !strings.Contains(line, "versionIRI") && !strings.Contains(line, "versionInfo") {
			continue
		}
		if v := extractToken(line); v != "" {
			return v
		}
	}
	return ""
}
