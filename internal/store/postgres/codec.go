package postgres

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/discrepancy/internal/discrepancy"
	"github.com/JonMunkholm/discrepancy/internal/document"
)

// bodyRow is the JSONB shape of one body row. Missing values are null.
type bodyRow struct {
	Label  string     `json:"label"`
	Values []*float64 `json:"values"`
}

func encodeBody(rows []document.Row) ([]byte, error) {
	out := make([]bodyRow, len(rows))
	for i, r := range rows {
		vals := make([]*float64, len(r.Values))
		for j, v := range r.Values {
			if math.IsNaN(v) {
				continue
			}
			if math.IsInf(v, 0) {
				return nil, fmt.Errorf("row %d column %d: infinite value", i, j)
			}
			v := v
			vals[j] = &v
		}
		out[i] = bodyRow{Label: r.Label, Values: vals}
	}
	return json.Marshal(out)
}

func decodeBody(data []byte) ([]document.Row, error) {
	var in []bodyRow
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	rows := make([]document.Row, len(in))
	for i, r := range in {
		vals := make([]float64, len(r.Values))
		for j, v := range r.Values {
			if v == nil {
				vals[j] = math.NaN()
				continue
			}
			vals[j] = *v
		}
		rows[i] = document.Row{Label: r.Label, Values: vals}
	}
	return rows, nil
}

func encodeUnits(units []document.Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = string(u)
	}
	return out
}

func decodeUnits(units []string) []document.Unit {
	if len(units) == 0 {
		return nil
	}
	out := make([]document.Unit, len(units))
	for i, u := range units {
		out[i] = document.Unit(u)
	}
	return out
}

// toPgIndex stores the whole-row/column sentinel as NULL.
func toPgIndex(i int) pgtype.Int4 {
	if i == discrepancy.Whole {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(i), Valid: true}
}

func fromPgIndex(v pgtype.Int4) int {
	if !v.Valid {
		return discrepancy.Whole
	}
	return int(v.Int32)
}

func toPgUUID(s string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("invalid discrepancy id %q: %w", s, err)
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

func encodeParams(params map[string]any) ([]byte, error) {
	if len(params) == 0 {
		return nil, nil
	}
	return json.Marshal(params)
}

func decodeParams(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	return params, nil
}
