package telemetry

import (
	"log/slog"
	"slices"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/herd/components"
)

// SpeciesCensus is one per-species row of a census.
type SpeciesCensus struct {
	Tick      int32   `csv:"tick"`
	Species   int     `csv:"species"`
	Count     int     `csv:"count"`
	MeanFood  float64 `csv:"mean_food"`
	MeanWater float64 `csv:"mean_water"`
	MeanSpeed float64 `csv:"mean_speed"`
}

// Census holds a host snapshot of the living organisms in an ECS world.
// Entities are reused across snapshots; the world only grows or shrinks
// by the difference in population.
type Census struct {
	world    *ecs.World
	mapper   *ecs.Map3[components.SpeciesTag, components.Vitals, components.Motion]
	filter   *ecs.Filter3[components.SpeciesTag, components.Vitals, components.Motion]
	entities []ecs.Entity
}

// NewCensus creates an empty census world.
func NewCensus() *Census {
	world := ecs.NewWorld()
	return &Census{
		world:  world,
		mapper: ecs.NewMap3[components.SpeciesTag, components.Vitals, components.Motion](world),
		filter: ecs.NewFilter3[components.SpeciesTag, components.Vitals, components.Motion](world),
	}
}

// Load replaces the snapshot with orgs.
func (c *Census) Load(orgs []components.Organism) {
	for len(c.entities) > len(orgs) {
		last := len(c.entities) - 1
		c.world.RemoveEntity(c.entities[last])
		c.entities = c.entities[:last]
	}
	for i, o := range orgs {
		tag, vit, mot := components.CensusParts(o)
		if i < len(c.entities) {
			t, v, m := c.mapper.Get(c.entities[i])
			*t, *v, *m = tag, vit, mot
			continue
		}
		c.entities = append(c.entities, c.mapper.NewEntity(&tag, &vit, &mot))
	}
}

// Len returns the number of organisms in the snapshot.
func (c *Census) Len() int {
	return len(c.entities)
}

// Summarize aggregates the snapshot per species, ordered by species id.
func (c *Census) Summarize(tick int32) []SpeciesCensus {
	type series struct {
		food, water, speed []float64
	}
	bySpecies := make(map[int]*series)

	query := c.filter.Query()
	for query.Next() {
		tag, vit, mot := query.Get()
		s, ok := bySpecies[tag.ID]
		if !ok {
			s = &series{}
			bySpecies[tag.ID] = s
		}
		s.food = append(s.food, float64(vit.Food))
		s.water = append(s.water, float64(vit.Water))
		s.speed = append(s.speed, float64(mot.Speed))
	}

	ids := make([]int, 0, len(bySpecies))
	for id := range bySpecies {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	rows := make([]SpeciesCensus, 0, len(ids))
	for _, id := range ids {
		s := bySpecies[id]
		rows = append(rows, SpeciesCensus{
			Tick:      tick,
			Species:   id,
			Count:     len(s.food),
			MeanFood:  stat.Mean(s.food, nil),
			MeanWater: stat.Mean(s.water, nil),
			MeanSpeed: stat.Mean(s.speed, nil),
		})
	}
	return rows
}

// LogCensus logs each species row.
func LogCensus(rows []SpeciesCensus) {
	for _, r := range rows {
		slog.Info("census",
			"tick", r.Tick,
			"species", r.Species,
			"count", r.Count,
			"mean_food", r.MeanFood,
			"mean_water", r.MeanWater,
			"mean_speed", r.MeanSpeed,
		)
	}
}
