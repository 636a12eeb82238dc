package predictive

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/marketsearch/internal/domain/creator"
	"github.com/kailas-cloud/marketsearch/internal/domain/handle"
	"github.com/kailas-cloud/marketsearch/internal/domain/listing"
	"github.com/kailas-cloud/marketsearch/internal/domain/search/result"
	"github.com/kailas-cloud/marketsearch/internal/metrics"
)

// MaxTitleLength caps product titles, in characters.
const MaxTitleLength = 200

// DefaultCurrency applies when a listing has no currency.
const DefaultCurrency = "USD"

func (s *Service) productItems(ls []listing.Listing) []result.Product {
	out := make([]result.Product, 0, len(ls))
	for _, l := range ls {
		out = append(out, s.toProduct(l))
	}
	return out
}

func (s *Service) toProduct(l listing.Listing) result.Product {
	title := capRunes(l.Title, MaxTitleLength)
	p := result.Product{
		ID:     l.ID,
		Title:  title,
		Handle: l.ID,
		Price: result.Money{
			Amount:       FormatCents(l.PriceCents),
			CurrencyCode: currencyCode(l.Currency),
		},
	}

	if l.Creator != nil {
		if handle.IsValid(l.Creator.Handle) {
			p.Creator = &result.CreatorRef{
				ID:          l.Creator.ID,
				DisplayName: displayName(l.Creator.DisplayName, l.Creator.Handle),
				Handle:      l.Creator.Handle,
			}
		} else {
			metrics.Dropped(metrics.DropInvalidHandle, 1)
		}
	}

	if l.Thumbnail != nil {
		if u := s.images.PublicURL(l.Thumbnail.StoragePath); u != "" {
			alt := l.Thumbnail.AltText
			if alt == "" {
				alt = title
			}
			p.Image = &result.Image{
				URL:     u,
				AltText: alt,
				Width:   l.Thumbnail.Width,
				Height:  l.Thumbnail.Height,
			}
		}
	}
	return p
}

// creatorItems converts profiles, dropping any whose handle is not safe to
// use as a URL path segment.
func (s *Service) creatorItems(ps []creator.Profile) []result.Creator {
	out := make([]result.Creator, 0, len(ps))
	dropped := 0
	for _, p := range ps {
		if !handle.IsValid(p.Handle) {
			dropped++
			continue
		}
		c := result.Creator{
			ID:                 p.ID,
			Handle:             p.Handle,
			DisplayName:        displayName(p.DisplayName, p.Handle),
			Bio:                p.Bio,
			VerificationStatus: p.VerificationStatus,
		}
		if p.AvatarPath != "" {
			c.ProfileImageURL = s.avatars.PublicURL(p.AvatarPath)
		}
		out = append(out, c)
	}
	if dropped > 0 {
		metrics.Dropped(metrics.DropInvalidHandle, dropped)
		s.logger.Warn("dropped creators with unsafe handles", zap.Int("count", dropped))
	}
	return out
}

// FormatCents renders integer minor units as a two-decimal amount:
// 1250 -> "12.50", 5 -> "0.05", -199 -> "-1.99".
func FormatCents(cents int64) string {
	neg := cents < 0
	u := uint64(cents)
	if neg {
		u = uint64(-cents)
	}
	s := strconv.FormatUint(u/100, 10) + "." + pad2(u%100)
	if neg {
		return "-" + s
	}
	return s
}

func pad2(n uint64) string {
	if n < 10 {
		return "0" + strconv.FormatUint(n, 10)
	}
	return strconv.FormatUint(n, 10)
}

func currencyCode(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return DefaultCurrency
	}
	return c
}

func displayName(name, h string) string {
	if strings.TrimSpace(name) == "" {
		return h
	}
	return name
}

func capRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
