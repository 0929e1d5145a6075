package csvio

import (
	"fmt"
	"io"
	"strings"

	"github.com/banshee-data/geokmedoids/internal/collate"
	"github.com/banshee-data/geokmedoids/internal/geo"
	"github.com/banshee-data/geokmedoids/internal/labeler"
)

// GroupCenter is one row of a centers file.
type GroupCenter struct {
	ID  string
	Lat float64
	Lon float64
}

type centerRow struct {
	GID string `csv:"gid"`
	Lat string `csv:"latitude"`
	Lon string `csv:"longitude"`
}

type centerOut struct {
	GID string  `csv:"gid"`
	Lat float64 `csv:"latitude"`
	Lon float64 `csv:"longitude"`
}

// LoadGroupCenters reads a gid,latitude,longitude file, keeping file order.
// Group identifiers must be unique.
func LoadGroupCenters(r io.Reader) ([]GroupCenter, error) {
	var rows []centerRow
	if err := decode(r, &rows, []string{"gid"}, []string{"latitude"}, []string{"longitude"}); err != nil {
		return nil, err
	}
	seen := make(map[string]int, len(rows))
	out := make([]GroupCenter, 0, len(rows))
	for i, row := range rows {
		line := lineOf(i)
		gid, err := requireText(line, "gid", row.GID)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[gid]; dup {
			return nil, &InputError{Line: line, Field: "gid", Err: fmt.Errorf("duplicate group %q (first on line %d)", gid, prev)}
		}
		seen[gid] = line
		p, err := toPosition(line, gid, row.Lat, row.Lon)
		if err != nil {
			return nil, err
		}
		out = append(out, GroupCenter{ID: gid, Lat: p.Lat, Lon: p.Lon})
	}
	return out, nil
}

// CenterMap indexes centers by group identifier for the collator.
func CenterMap(centers []GroupCenter) map[string]collate.Center {
	out := make(map[string]collate.Center, len(centers))
	for _, c := range centers {
		out[c.ID] = collate.Center{Lat: c.Lat, Lon: c.Lon}
	}
	return out
}

// Position returns the center as a geo.Position named after the group.
func (c GroupCenter) Position() geo.Position {
	return geo.Position{ID: c.ID, Lat: c.Lat, Lon: c.Lon}
}

// WriteGroupCenters writes groups as gid,latitude,longitude in label order.
func WriteGroupCenters(w io.Writer, groups []labeler.Group) error {
	out := make([]centerOut, len(groups))
	for i, g := range groups {
		out[i] = centerOut{GID: g.ID, Lat: g.Lat, Lon: g.Lon}
	}
	return encode(w, &out)
}

type collatedOut struct {
	UserID  string  `csv:"user_id"`
	GroupID string  `csv:"start_point_id"`
	Lat     float64 `csv:"start_point_latitude"`
	Lon     float64 `csv:"start_point_longitude"`
	Members string  `csv:"potential_group_members"`
}

// WriteCollatedIdentities writes one row per identity. Co-members are
// joined with commas into a single quoted field.
func WriteCollatedIdentities(w io.Writer, records []collate.Record) error {
	out := make([]collatedOut, len(records))
	for i, r := range records {
		out[i] = collatedOut{
			UserID:  r.Identity,
			GroupID: r.Group,
			Lat:     r.Lat,
			Lon:     r.Lon,
			Members: strings.Join(r.CoMembers, ","),
		}
	}
	return encode(w, &out)
}
