package csvio

import (
	"io"

	"github.com/banshee-data/geokmedoids/internal/collate"
	"github.com/banshee-data/geokmedoids/internal/geo"
	"github.com/banshee-data/geokmedoids/internal/labeler"
)

type positionRow struct {
	ID  string `csv:"id,uid"`
	Lat string `csv:"lat,latitude"`
	Lon string `csv:"lon,longitude"`
}

// LoadPositions reads an id,lat,lon file. Identifiers need not be unique.
func LoadPositions(r io.Reader) ([]geo.Position, error) {
	var rows []positionRow
	if err := decode(r, &rows, []string{"id", "uid"}, []string{"lat", "latitude"}, []string{"lon", "longitude"}); err != nil {
		return nil, err
	}
	out := make([]geo.Position, 0, len(rows))
	for i, row := range rows {
		p, err := toPosition(lineOf(i), row.ID, row.Lat, row.Lon)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func toPosition(line int, id, lat, lon string) (geo.Position, error) {
	var (
		p   geo.Position
		err error
	)
	if p.ID, err = requireText(line, "id", id); err != nil {
		return p, err
	}
	if p.Lat, err = parseCoord(line, "lat", lat); err != nil {
		return p, err
	}
	if p.Lon, err = parseCoord(line, "lon", lon); err != nil {
		return p, err
	}
	if err := p.Validate(); err != nil {
		return p, &InputError{Line: line, Err: err}
	}
	return p, nil
}

type labeledRow struct {
	UID string `csv:"uid"`
	GID string `csv:"gid"`
	Lat string `csv:"latitude"`
	Lon string `csv:"longitude"`
}

type labeledOut struct {
	UID string  `csv:"uid"`
	GID string  `csv:"gid"`
	Lat float64 `csv:"latitude"`
	Lon float64 `csv:"longitude"`
}

// LoadLabeledPositions reads a uid,gid,latitude,longitude file.
func LoadLabeledPositions(r io.Reader) ([]labeler.LabeledPosition, error) {
	var rows []labeledRow
	if err := decode(r, &rows, []string{"uid"}, []string{"gid"}, []string{"latitude"}, []string{"longitude"}); err != nil {
		return nil, err
	}
	out := make([]labeler.LabeledPosition, 0, len(rows))
	for i, row := range rows {
		line := lineOf(i)
		p, err := toPosition(line, row.UID, row.Lat, row.Lon)
		if err != nil {
			return nil, err
		}
		gid, err := requireText(line, "gid", row.GID)
		if err != nil {
			return nil, err
		}
		out = append(out, labeler.LabeledPosition{ID: p.ID, GroupID: gid, Lat: p.Lat, Lon: p.Lon})
	}
	return out, nil
}

// WriteLabeledPositions writes rows as uid,gid,latitude,longitude.
func WriteLabeledPositions(w io.Writer, rows []labeler.LabeledPosition) error {
	out := make([]labeledOut, len(rows))
	for i, p := range rows {
		out[i] = labeledOut{UID: p.ID, GID: p.GroupID, Lat: p.Lat, Lon: p.Lon}
	}
	return encode(w, &out)
}

// Observations converts labeled positions into collator input.
func Observations(rows []labeler.LabeledPosition) []collate.Observation {
	out := make([]collate.Observation, len(rows))
	for i, p := range rows {
		out[i] = collate.Observation{Identity: p.ID, Group: p.GroupID, Lat: p.Lat, Lon: p.Lon}
	}
	return out
}
