// Package model holds the core TOPTW data types shared by every optimizer
// package: the POI candidate, the request/constraints, routes, timelines,
// and the process-wide pheromone and weight structures.
package model

// Weekday is one of the seven English weekday labels used by opening-hours
// lookups and request day_of_week.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// Pace is the user's walking/visiting speed preference. Multiplier scales a
// route's accumulated time in the evaluator's pace check; slower paces
// consume more of max_duration per POI.
type Pace string

const (
	PaceSlow   Pace = "slow"
	PaceMedium Pace = "medium"
	PaceFast   Pace = "fast"
)

// Multiplier returns the effective time-consumption multiplier for the pace.
func (p Pace) Multiplier() float64 {
	switch p {
	case PaceSlow:
		return 1.3
	case PaceFast:
		return 0.8
	default:
		return 1.0
	}
}

// Profile is the transport mode used for travel-time estimation.
type Profile string

const (
	ProfileWalking Profile = "walking"
	ProfileCycling Profile = "cycling"
	ProfileDriving Profile = "driving"
)

// OpeningHours maps a weekday label to a human-readable range, which may be
// nil (absent), "24 hours"/"24 horas", "Closed"/"Cerrado", or an "HH:MM-HH:MM"
// range. pkg/hours.ParseOpeningHours is the sole consumer of the raw strings.
type OpeningHours map[Weekday]*string

// POI is a single candidate Point of Interest. Instances are immutable for
// the duration of one optimization run.
type POI struct {
	ID             int               `json:"id"`
	DisplayName    string            `json:"display_name"`
	Lat            float64           `json:"lat"`
	Lon            float64           `json:"lon"`
	Popularity     int               `json:"popularity"` // 0..100
	VisitDuration  int               `json:"visit_duration"` // minutes, > 0
	Category       string            `json:"category"`
	Price          float64           `json:"price"` // non-negative
	Rating         float64           `json:"rating"` // 0..5
	Tags           []string          `json:"tags"`
	District       string            `json:"district"`
	LearnedWeight  float64           `json:"learned_weight"` // defaults to 1.0
	OpeningHours   OpeningHours      `json:"opening_hours"`

	// OpenMinute/CloseMinute/Closed are not set by any package in this
	// module; the Evaluator, ACO and GA call pkg/hours on OpeningHours
	// directly for the active request day.
	OpenMinute  int  `json:"-"`
	CloseMinute int  `json:"-"`
	Closed      bool `json:"-"`
}

// WeatherContext carries optional weather observations that modulate POI
// desirability in the Evaluator's weather_weight term.
type WeatherContext struct {
	PrecipitationMMPerHour float64 `json:"precipitation_mm_per_hour"`
	TemperatureC           float64 `json:"temperature_c"`
	WindSpeedKmh           float64 `json:"wind_speed_kmh"`
	WeatherCode            string  `json:"weather_code"`
}

// Location is a plain lat/lon pair, used for the optional request start
// location separately from geo.Point so pkg/model has no geo dependency.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Constraints bounds one optimization run.
type Constraints struct {
	MaxDuration         int             `json:"max_duration"` // minutes, 60..720
	MaxBudget           float64         `json:"max_budget"`
	StartTime           int             `json:"start_time"` // minute-of-day
	Pace                Pace            `json:"user_pace"`
	MandatoryCategories []string        `json:"mandatory_categories"`
	AvoidCategories     []string        `json:"avoid_categories"`
	PreferredDistricts  []string        `json:"preferred_districts"`
	Weather             *WeatherContext `json:"weather,omitempty"`
	TransportProfile    Profile         `json:"transport_profile"`
	DayOfWeek           Weekday         `json:"day_of_week"`
}

// Route is an ordered, duplicate-free sequence of indices into the
// candidate POI array handed to the Evaluator/ACO/GA. An empty route is
// feasible.
type Route []int

// TimelineEntry is one visited stop in a computed schedule. Skipped POIs
// produce no entry.
type TimelineEntry struct {
	POIID           int     `json:"poi_id"`
	ArrivalMinute   int     `json:"arrival_minute"`
	WaitMinutes     int     `json:"wait_minutes"`
	DepartureMinute int     `json:"departure_minute"`
	TravelMinutes   int     `json:"travel_minutes_from_prev"`
	VisitDuration   int     `json:"visit_duration"` // post-redistribution, schedule-only
	Price           float64 `json:"price"`
	IsFree          bool    `json:"is_free"`
	District        string  `json:"district"`
	Category        string  `json:"category"`
	Rating          float64 `json:"rating"`
}

// Timeline is the Evaluator's schedule output: the ordered, feasible subset
// of a route plus aggregate totals.
type Timeline struct {
	Entries      []TimelineEntry `json:"entries"`
	TotalCost    float64         `json:"total_cost"`
	NumPOIs      int             `json:"num_pois"`
	StartTime    int             `json:"start_time"`
	EndTime      int             `json:"end_time"`
	TotalMinutes int             `json:"total_duration"`
}

// PheromoneMatrix is an N×N non-negative matrix, double-buffered by ACO: one
// frozen snapshot read during an iteration, one deposit buffer merged at the
// iteration boundary.
type PheromoneMatrix struct {
	N     int
	Cells []float64 // row-major, length N*N
}

// NewPheromoneMatrix allocates an N×N matrix initialized to tau0.
func NewPheromoneMatrix(n int, tau0 float64) *PheromoneMatrix {
	cells := make([]float64, n*n)
	for i := range cells {
		cells[i] = tau0
	}
	return &PheromoneMatrix{N: n, Cells: cells}
}

// At returns tau(i,j).
func (m *PheromoneMatrix) At(i, j int) float64 {
	return m.Cells[i*m.N+j]
}

// Set writes tau(i,j).
func (m *PheromoneMatrix) Set(i, j int, v float64) {
	m.Cells[i*m.N+j] = v
}

// Snapshot returns an independent copy, suitable for a read-only frozen view
// handed to parallel ant/generation workers.
func (m *PheromoneMatrix) Snapshot() *PheromoneMatrix {
	cells := make([]float64, len(m.Cells))
	copy(cells, m.Cells)
	return &PheromoneMatrix{N: m.N, Cells: cells}
}

// OptimizationWeights are the four scoring weights (must sum to 1.0) plus
// the penalty coefficients shared by the heuristic and the fitness function.
// A process-wide instance is swapped atomically by pkg/weights; the
// orchestrator takes one snapshot by value per run.
type OptimizationWeights struct {
	DistanceWeight   float64 `json:"distance_weight"`
	PopularityWeight float64 `json:"popularity_weight"`
	UrgencyWeight    float64 `json:"urgency_weight"`
	RatingWeight     float64 `json:"rating_weight"`

	TravelTimePenalty        float64 `json:"travel_time_penalty"`
	CostPenalty              float64 `json:"cost_penalty"`
	ConstraintViolation      float64 `json:"constraint_violation"`
	WaitPenalty              float64 `json:"wait_penalty"`
	MissedPOIPenalty         float64 `json:"missed_poi_penalty"`
	InsufficientTimePenalty  float64 `json:"insufficient_time_penalty"`
	AvoidedCategoryPenalty   float64 `json:"avoided_category_penalty"`
	MandatoryMissingPenalty  float64 `json:"mandatory_missing_penalty"`
	NonVisitablePenalty      float64 `json:"non_visitable_penalty"`
}

// Request is the external optimization request consumed by the Orchestrator.
type Request struct {
	Candidates       []POI       `json:"candidates"`
	Constraints      Constraints `json:"constraints"`
	StartLocation    *Location   `json:"start_location,omitempty"`
	SelectedPOIIDs   []int       `json:"selected_poi_ids,omitempty"`
}

// Response is the external optimization result produced by the Orchestrator.
type Response struct {
	RouteID       string          `json:"route_id"`
	OrderedPOIIDs []int           `json:"ordered_poi_ids"`
	Timeline      []TimelineEntry `json:"timeline"`
	TotalDuration int             `json:"total_duration"`
	TotalCost     float64         `json:"total_cost"`
	FitnessScore  float64         `json:"fitness_score"`
	StartTime     int             `json:"start_time"`
	EndTime       int             `json:"end_time"`
	NumPOIs       int             `json:"num_pois"`
}

// Name returns the POI's label, falling back to a generic placeholder if
// DisplayName was never set.
func (p *POI) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return "POI"
}
