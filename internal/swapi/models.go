package swapi

// Page is a paginated list response.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// Character is a person resource (people/<id>).
type Character struct {
	Name      string   `json:"name"`
	Height    string   `json:"height"`
	Mass      string   `json:"mass"`
	BirthYear string   `json:"birth_year"`
	Films     []string `json:"films"`
}

// Starship is a starship resource.
type Starship struct {
	Name                 string   `json:"name"`
	Model                string   `json:"model"`
	Manufacturer         string   `json:"manufacturer"`
	CostInCredits        string   `json:"cost_in_credits"`
	MaxAtmospheringSpeed string   `json:"max_atmosphering_speed"`
	HyperdriveRating     string   `json:"hyperdrive_rating"`
	Pilots               []string `json:"pilots"`
}

// Planet is a planet resource. Population and diameter may be "unknown".
type Planet struct {
	Name       string   `json:"name"`
	Population string   `json:"population"`
	Diameter   string   `json:"diameter"`
	Climate    string   `json:"climate"`
	Films      []string `json:"films"`
}

// Film is a film resource. ReleaseDate is YYYY-MM-DD.
type Film struct {
	Title       string   `json:"title"`
	EpisodeID   int      `json:"episode_id"`
	Director    string   `json:"director"`
	Producer    string   `json:"producer"`
	ReleaseDate string   `json:"release_date"`
	Characters  []string `json:"characters"`
	Planets     []string `json:"planets"`
}

// Vehicle is a vehicle resource.
type Vehicle struct {
	Name          string `json:"name"`
	Model         string `json:"model"`
	Manufacturer  string `json:"manufacturer"`
	CostInCredits string `json:"cost_in_credits"`
	Length        string `json:"length"`
	Crew          string `json:"crew"`
	Passengers    string `json:"passengers"`
}

// Unknown is the API's placeholder for missing values.
const Unknown = "unknown"
