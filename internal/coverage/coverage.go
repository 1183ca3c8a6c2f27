package coverage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"decorbook/internal/models"
)

// Index answers where the service operates. It is read-only after Load.
type Index struct {
	warehouses []models.Warehouse
	byDistrict map[string]models.Warehouse
}

// Load reads the coverage JSON from a file path or an http(s) URL.
func Load(ctx context.Context, source string, client *http.Client) (*Index, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err = fetch(ctx, source, client)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("load coverage %s: %w", source, err)
	}
	return Parse(data)
}

func fetch(ctx context.Context, url string, client *http.Client) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func Parse(data []byte) (*Index, error) {
	var ws []models.Warehouse
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("parse coverage: %w", err)
	}
	idx := &Index{warehouses: ws, byDistrict: make(map[string]models.Warehouse, len(ws))}
	for _, w := range ws {
		idx.byDistrict[strings.ToLower(w.District)] = w
	}
	return idx, nil
}

func (i *Index) Len() int { return len(i.warehouses) }

// District finds a warehouse by exact district name, ignoring case.
func (i *Index) District(name string) (models.Warehouse, bool) {
	w, ok := i.byDistrict[strings.ToLower(strings.TrimSpace(name))]
	return w, ok
}

// Search matches q as a case-insensitive substring of the district or any
// covered area.
func (i *Index) Search(q string) []models.Warehouse {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}
	var out []models.Warehouse
	for _, w := range i.warehouses {
		if strings.Contains(strings.ToLower(w.District), q) {
			out = append(out, w)
			continue
		}
		for _, area := range w.CoveredArea {
			if strings.Contains(strings.ToLower(area), q) {
				out = append(out, w)
				break
			}
		}
	}
	return out
}

// Districts lists district names alphabetically.
func (i *Index) Districts() []string {
	out := make([]string, 0, len(i.warehouses))
	for _, w := range i.warehouses {
		out = append(out, w.District)
	}
	sort.Strings(out)
	return out
}

// MapLink renders the warehouse location as a map URL.
func MapLink(w models.Warehouse) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%.6f,%.6f", w.Latitude, w.Longitude)
}
