package chi

import (
	"github.com/kailas-cloud/ftsync/internal/domain/search/request"
	"github.com/kailas-cloud/ftsync/internal/domain/search/result"
)

// SearchResponse is the body of a search. Which of IDs, Hits and Records is
// set depends on Mode.
type SearchResponse struct {
	Mode    request.Mode     `json:"mode"`
	Total   int              `json:"total"`
	IDs     []string         `json:"ids,omitempty"`
	Hits    []HitResponse    `json:"hits,omitempty"`
	Records []RecordResponse `json:"records,omitempty"`
}

// HitResponse is one raw index hit.
type HitResponse struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Attributes map[string]string `json:"attributes"`
	Texts      []string          `json:"texts,omitempty"`
}

// RecordResponse is one hydrated record.
type RecordResponse struct {
	Type       string         `json:"type"`
	ID         int64          `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

// EntryResponse is one stored index entry.
type EntryResponse struct {
	ID     string `json:"id"`
	URI    string `json:"uri"`
	Digest string `json:"digest,omitempty"`
}

func searchResultToJSON(r *result.Result) SearchResponse {
	resp := SearchResponse{Mode: r.Mode(), Total: r.Total()}

	switch r.Mode() {
	case request.Count:
	case request.Raw:
		hits := r.Hits()
		resp.Hits = make([]HitResponse, len(hits))
		for i := range hits {
			resp.Hits[i] = HitResponse{
				ID:         hits[i].IndexID(),
				Score:      hits[i].Score(),
				Attributes: hits[i].Attributes(),
				Texts:      hits[i].Texts(),
			}
		}
	default:
		resp.IDs = r.RecordIDs()
		recs := r.Records()
		resp.Records = make([]RecordResponse, len(recs))
		for i, rec := range recs {
			resp.Records[i] = RecordResponse{Type: rec.Type(), ID: rec.ID(), Attributes: rec.Attributes()}
		}
	}
	return resp
}
