package polymarket

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/scalpbot/internal/domain"
)

// upDownSlugMarker identifica las ventanas binarias de precio en el slug.
const upDownSlugMarker = "-up-or-down-"

// mapGammaMarket convierte un gammaMarket crudo a domain.Market. Devuelve un
// error descriptivo cuando el registro está malformado; el caller lo descarta
// sin abortar el fetch completo.
func mapGammaMarket(gm gammaMarket) (domain.Market, error) {
	if gm.ConditionID == "" {
		return domain.Market{}, fmt.Errorf("missing condition id (slug=%q)", gm.Slug)
	}

	instrument := parseInstrument(gm.Slug)
	if instrument == "" {
		return domain.Market{}, fmt.Errorf("slug %q is not an up/down window", gm.Slug)
	}

	tokenIDs, err := decodeStringPair(gm.ClobTokenIDs)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market %s: clobTokenIds: %w", gm.Slug, err)
	}
	outcomes, err := decodeStringPair(gm.Outcomes)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market %s: outcomes: %w", gm.Slug, err)
	}

	m := domain.Market{
		Slug:        gm.Slug,
		ConditionID: gm.ConditionID,
		Instrument:  instrument,
		Question:    gm.Question,
		Active:      gm.Active,
		Closed:      gm.Closed,
	}

	// El orden de outcomes define qué token es UP y cuál DOWN.
	for i, outcome := range outcomes {
		switch strings.ToUpper(outcome) {
		case "UP", "YES":
			m.UpTokenID = tokenIDs[i]
		case "DOWN", "NO":
			m.DownTokenID = tokenIDs[i]
		}
	}
	if m.UpTokenID == "" || m.DownTokenID == "" {
		return domain.Market{}, fmt.Errorf("market %s: unrecognized outcomes %v", gm.Slug, outcomes)
	}

	m.ExpiresAt = parseISOTime(gm.EndDateISO)
	if m.ExpiresAt.IsZero() {
		return domain.Market{}, fmt.Errorf("market %s: unparseable endDateIso %q", gm.Slug, gm.EndDateISO)
	}
	m.OpenedAt = parseISOTime(gm.StartDateISO)

	return m, nil
}

// decodeStringPair parsea un string JSON anidado como "[\"a\",\"b\"]" y
// verifica que contenga exactamente dos elementos no vacíos.
func decodeStringPair(raw string) ([]string, error) {
	var vals []string
	if err := json.Unmarshal([]byte(raw), &vals); err != nil {
		return nil, fmt.Errorf("decode %q: %w", raw, err)
	}
	if len(vals) != 2 || vals[0] == "" || vals[1] == "" {
		return nil, fmt.Errorf("expected 2 non-empty values, got %v", vals)
	}
	return vals, nil
}

// parseInstrument extrae el símbolo del slug: "btc-up-or-down-..." → "BTC".
// Devuelve "" si el slug no sigue el patrón up/down.
func parseInstrument(slug string) string {
	idx := strings.Index(slug, upDownSlugMarker)
	if idx <= 0 {
		return ""
	}
	return strings.ToUpper(slug[:idx])
}

// parseISOTime intenta los formatos de fecha que devuelve la API.
func parseISOTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// mapOrderBooks convierte la respuesta batch de /books a un map tokenID→OrderBook.
func mapOrderBooks(raw []orderBookResponse) map[string]domain.OrderBook {
	result := make(map[string]domain.OrderBook, len(raw))
	for _, r := range raw {
		if r.AssetID == "" {
			continue
		}
		result[r.AssetID] = domain.OrderBook{
			TokenID: r.AssetID,
			Bids:    mapBookEntries(r.Bids, false),
			Asks:    mapBookEntries(r.Asks, true),
		}
	}
	return result
}

// mapBookEntries convierte entries raw a domain.BookEntry y los ordena.
// ascending=true → menor a mayor (asks), ascending=false → mayor a menor (bids).
func mapBookEntries(raw []bookEntryRaw, ascending bool) []domain.BookEntry {
	entries := make([]domain.BookEntry, 0, len(raw))
	for _, r := range raw {
		price, _ := strconv.ParseFloat(r.Price, 64)
		size, _ := strconv.ParseFloat(r.Size, 64)
		if price <= 0 || size <= 0 {
			continue
		}
		entries = append(entries, domain.BookEntry{Price: price, Size: size})
	}

	sort.Slice(entries, func(i, j int) bool {
		if ascending {
			return entries[i].Price < entries[j].Price
		}
		return entries[i].Price > entries[j].Price
	})

	return entries
}
