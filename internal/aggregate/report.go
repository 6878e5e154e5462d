package aggregate

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/revittco/galaxystats/internal/swapi"
)

// Report is what one run collected. Nil sections were not reached.
type Report struct {
	RunID        string
	Character    *swapi.Character
	Starships    *StarshipSummary
	LargePlanets *[]swapi.Planet
	Films        *[]swapi.Film
	Vehicle      *swapi.Vehicle
	Stats        *RunStats
}

// StarshipSummary is the starship total plus the first few entries.
type StarshipSummary struct {
	Total int
	Top   []swapi.Starship
}

// RunStats is the debug stats block, read at the end of a run.
type RunStats struct {
	APICalls  int64
	CacheSize int
	DataSize  int64
	Errors    int64
}

// LargePlanets keeps planets whose population exceeds one billion and
// whose diameter exceeds 10000. Unknown or non-numeric values never match.
func LargePlanets(planets []swapi.Planet) []swapi.Planet {
	out := []swapi.Planet{}
	for _, p := range planets {
		if exceeds(p.Population, minPopulation) && exceeds(p.Diameter, minDiameter) {
			out = append(out, p)
		}
	}
	return out
}

func exceeds(v string, limit int64) bool {
	if v == swapi.Unknown {
		return false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	return err == nil && n > limit
}

// SortFilms returns films ordered by release date, oldest first.
// Films with unparsable dates keep their relative order at the end.
func SortFilms(films []swapi.Film) []swapi.Film {
	out := slices.Clone(films)
	slices.SortStableFunc(out, func(a, b swapi.Film) int {
		ta, errA := time.Parse(time.DateOnly, a.ReleaseDate)
		tb, errB := time.Parse(time.DateOnly, b.ReleaseDate)
		switch {
		case errA != nil && errB != nil:
			return 0
		case errA != nil:
			return 1
		case errB != nil:
			return -1
		}
		return cmp.Compare(ta.Unix(), tb.Unix())
	})
	return out
}

// WriteTo prints the report in console form.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var b bytes.Buffer

	if c := r.Character; c != nil {
		fmt.Fprintf(&b, "Character: %s\n", c.Name)
		fmt.Fprintf(&b, "Height: %s\n", c.Height)
		fmt.Fprintf(&b, "Mass: %s\n", c.Mass)
		fmt.Fprintf(&b, "Birthday: %s\n", c.BirthYear)
		if len(c.Films) > 0 {
			fmt.Fprintf(&b, "Appears in %d films\n", len(c.Films))
		}
	}

	if s := r.Starships; s != nil {
		fmt.Fprintf(&b, "\nTotal Starships: %d\n", s.Total)
		for i, ship := range s.Top {
			fmt.Fprintf(&b, "\nStarship %d:\n", i+1)
			fmt.Fprintf(&b, "Name: %s\n", ship.Name)
			fmt.Fprintf(&b, "Model: %s\n", ship.Model)
			fmt.Fprintf(&b, "Manufacturer: %s\n", ship.Manufacturer)
			fmt.Fprintf(&b, "Cost: %s\n", credits(ship.CostInCredits))
			fmt.Fprintf(&b, "Speed: %s\n", ship.MaxAtmospheringSpeed)
			fmt.Fprintf(&b, "Hyperdrive Rating: %s\n", ship.HyperdriveRating)
			if len(ship.Pilots) > 0 {
				fmt.Fprintf(&b, "Pilots: %d\n", len(ship.Pilots))
			}
		}
	}

	if r.LargePlanets != nil {
		b.WriteString("\nLarge populated planets:\n")
		for _, p := range *r.LargePlanets {
			fmt.Fprintf(&b, "%s - Pop: %s - Diameter: %s - Climate: %s\n",
				p.Name, p.Population, p.Diameter, p.Climate)
			if len(p.Films) > 0 {
				fmt.Fprintf(&b, "  Appears in %d films\n", len(p.Films))
			}
		}
	}

	if r.Films != nil {
		b.WriteString("\nStar Wars Films in chronological order:\n")
		for i, f := range *r.Films {
			fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, f.Title, f.ReleaseDate)
			fmt.Fprintf(&b, "   Director: %s\n", f.Director)
			fmt.Fprintf(&b, "   Producer: %s\n", f.Producer)
			fmt.Fprintf(&b, "   Characters: %d\n", len(f.Characters))
			fmt.Fprintf(&b, "   Planets: %d\n", len(f.Planets))
		}
	}

	if v := r.Vehicle; v != nil {
		b.WriteString("\nFeatured Vehicle:\n")
		fmt.Fprintf(&b, "Name: %s\n", v.Name)
		fmt.Fprintf(&b, "Model: %s\n", v.Model)
		fmt.Fprintf(&b, "Manufacturer: %s\n", v.Manufacturer)
		fmt.Fprintf(&b, "Cost: %s credits\n", v.CostInCredits)
		fmt.Fprintf(&b, "Length: %s\n", v.Length)
		fmt.Fprintf(&b, "Crew Required: %s\n", v.Crew)
		fmt.Fprintf(&b, "Passengers: %s\n", v.Passengers)
	}

	if s := r.Stats; s != nil {
		b.WriteString("\nStats:\n")
		fmt.Fprintf(&b, "API Calls: %d\n", s.APICalls)
		fmt.Fprintf(&b, "Cache Size: %d\n", s.CacheSize)
		fmt.Fprintf(&b, "Total Data Size: %d bytes\n", s.DataSize)
		fmt.Fprintf(&b, "Error Count: %d\n", s.Errors)
	}

	return b.WriteTo(w)
}

func credits(cost string) string {
	if cost == swapi.Unknown {
		return swapi.Unknown
	}
	return cost + " credits"
}
