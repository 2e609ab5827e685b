package polymarket

// books.go — fetch batch de orderbooks del CLOB.
//
// FetchOrderBooks lanza un goroutine por batch y los ejecuta
// concurrentemente. El rate limiter (token bucket) en doWithRetry controla
// el ritmo automáticamente — las goroutines se "autolimitan" sin necesidad
// de semáforo explícito. Un batch caído devuelve resultados parciales: el
// engine difiere los mercados sin book en vez de perder el ciclo entero.

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alejandrodnm/scalpbot/internal/domain"
)

const (
	booksPath = "/books"
	batchSize = 20 // máx token_ids por request a /books
)

// FetchOrderBooks obtiene los orderbooks para los token_ids dados usando el
// endpoint batch. Devuelve lo que consiguió; error solo si TODO falló.
func (c *Client) FetchOrderBooks(ctx context.Context, tokenIDs []string) (map[string]domain.OrderBook, error) {
	if len(tokenIDs) == 0 {
		return map[string]domain.OrderBook{}, nil
	}

	batches := splitBatches(tokenIDs, batchSize)

	type batchResult struct {
		books map[string]domain.OrderBook
		err   error
		idx   int
	}

	resultCh := make(chan batchResult, len(batches))
	var wg sync.WaitGroup

	for i, batch := range batches {
		i, batch := i, batch
		wg.Add(1)
		go func() {
			defer wg.Done()
			books, err := c.fetchBooksBatch(ctx, batch)
			resultCh <- batchResult{books: books, err: err, idx: i}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	result := make(map[string]domain.OrderBook, len(tokenIDs))
	failed := 0
	var firstErr error

	for r := range resultCh {
		if r.err != nil {
			failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("polymarket.FetchOrderBooks: batch %d: %w", r.idx, r.err)
			}
			slog.Warn("polymarket: books batch failed", "batch", r.idx, "err", r.err)
			continue
		}
		for k, v := range r.books {
			result[k] = v
		}
	}

	if failed == len(batches) {
		return nil, firstErr
	}

	slog.Debug("polymarket: order books fetched", "tokens", len(tokenIDs), "books", len(result))
	return result, nil
}

// splitBatches divide tokenIDs en slices de tamaño máximo size.
func splitBatches(tokenIDs []string, size int) [][]string {
	if size <= 0 {
		size = batchSize
	}
	batches := make([][]string, 0, (len(tokenIDs)+size-1)/size)
	for i := 0; i < len(tokenIDs); i += size {
		end := i + size
		if end > len(tokenIDs) {
			end = len(tokenIDs)
		}
		batches = append(batches, tokenIDs[i:end])
	}
	return batches
}

// fetchBooksBatch hace un POST /books para un batch de token_ids.
func (c *Client) fetchBooksBatch(ctx context.Context, tokenIDs []string) (map[string]domain.OrderBook, error) {
	body := make([]orderBookRequest, len(tokenIDs))
	for i, id := range tokenIDs {
		body[i] = orderBookRequest{TokenID: id}
	}

	var resp []orderBookResponse
	url := c.clobBase + booksPath
	if err := c.post(ctx, c.booksLimiter, url, body, &resp); err != nil {
		return nil, fmt.Errorf("POST /books: %w", err)
	}

	return mapOrderBooks(resp), nil
}
