package preload

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"unicode"

	"github.com/ds124wfegd/WB_L3/imgpipe/internal/entity"
)

// LinkHeaderSink keeps hints as HTTP Link header values (RFC 8288), so they
// can be sent with a response before the page body is parsed.
type LinkHeaderSink struct {
	mu     sync.RWMutex
	order  []string
	values map[string]string
}

func NewLinkHeaderSink() *LinkHeaderSink {
	return &LinkHeaderSink{values: make(map[string]string)}
}

var ErrUnsafeLink = errors.New("preload entry can't be written as a Link header")

// ValidateLink reports whether entry fits into a single Link header value.
// The target goes between <> unescaped, so it must not be able to close the
// brackets; commas stay allowed since ImageKit transform segments use them.
// Token parameters are written unquoted and must be RFC 7230 tokens.
func ValidateLink(entry entity.PreloadEntry) error {
	if entry.Src == "" || strings.ContainsAny(entry.Src, `<>"\`) || hasSpaceOrControl(entry.Src) {
		return fmt.Errorf("%w: src %q", ErrUnsafeLink, entry.Src)
	}
	if _, err := url.Parse(entry.Src); err != nil {
		return fmt.Errorf("%w: src %q: %v", ErrUnsafeLink, entry.Src, err)
	}

	tokens := map[string]string{
		"as":            entry.As,
		"fetchpriority": string(entry.FetchPriority),
		"crossorigin":   entry.CrossOrigin,
	}
	for name, v := range tokens {
		if v != "" && !isToken(v) {
			return fmt.Errorf("%w: %s %q", ErrUnsafeLink, name, v)
		}
	}

	for _, v := range []string{entry.Type, entry.Media, entry.ImageSrcSet, entry.ImageSizes} {
		if strings.IndexFunc(v, unicode.IsControl) >= 0 {
			return fmt.Errorf("%w: control character in %q", ErrUnsafeLink, v)
		}
	}
	return nil
}

func (s *LinkHeaderSink) InsertPreloadHint(entry entity.PreloadEntry) error {
	if err := ValidateLink(entry); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[entry.Src]; !ok {
		s.order = append(s.order, entry.Src)
	}
	s.values[entry.Src] = FormatLink(entry)
	return nil
}

func (s *LinkHeaderSink) RemovePreloadHint(src string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[src]; !ok {
		return false
	}
	delete(s.values, src)
	for i, v := range s.order {
		if v == src {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Values returns the header values in insertion order.
func (s *LinkHeaderSink) Values() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.order))
	for _, src := range s.order {
		out = append(out, s.values[src])
	}
	return out
}

// FormatLink renders one preload hint as a Link header value.
func FormatLink(entry entity.PreloadEntry) string {
	as := entry.As
	if as == "" {
		as = "image"
	}

	var b strings.Builder
	b.WriteString("<" + entry.Src + ">; rel=preload; as=" + as)
	if entry.Type != "" {
		b.WriteString("; type=" + quote(entry.Type))
	}
	if entry.FetchPriority != "" {
		b.WriteString("; fetchpriority=" + string(entry.FetchPriority))
	}
	if entry.Media != "" {
		b.WriteString("; media=" + quote(entry.Media))
	}
	if entry.ImageSrcSet != "" {
		b.WriteString("; imagesrcset=" + quote(entry.ImageSrcSet))
	}
	if entry.ImageSizes != "" {
		b.WriteString("; imagesizes=" + quote(entry.ImageSizes))
	}
	if entry.CrossOrigin != "" {
		b.WriteString("; crossorigin=" + entry.CrossOrigin)
	}
	return b.String()
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// quote renders v as an RFC 7230 quoted-string.
func quote(v string) string {
	return `"` + quoteEscaper.Replace(v) + `"`
}

func isToken(v string) bool {
	for _, r := range v {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("!#$%&'*+-.^_`|~", r):
		default:
			return false
		}
	}
	return true
}

func hasSpaceOrControl(v string) bool {
	return strings.IndexFunc(v, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) >= 0
}
