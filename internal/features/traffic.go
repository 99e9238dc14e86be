package features

import (
	"fmt"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"

	"github.com/jengzang/trip-features-go/internal/stats"
)

const (
	trafficQuantile = 0.3
	freeQuantile    = 0.7
)

// MatchMode selects how a row's (day, hour) is tested against learned buckets.
type MatchMode string

const (
	// MatchCoordinates tests day and hour independently against the days and
	// hours present in the bucket set. A row can match through two different
	// buckets, e.g. day from (2, 8) and hour from (4, 17).
	MatchCoordinates MatchMode = "coordinate"
	// MatchPairs tests the exact (day, hour) pair.
	MatchPairs MatchMode = "pair"
)

// Valid reports whether m is a known mode. The empty mode is valid and means MatchCoordinates.
func (m MatchMode) Valid() bool {
	return m == "" || m == MatchCoordinates || m == MatchPairs
}

// Bucket is a (day_of_week, hour) aggregation cell
type Bucket struct {
	Day  int `json:"day"`
	Hour int `json:"hour"`
}

func (b Bucket) less(o Bucket) bool {
	if b.Day != o.Day {
		return b.Day < o.Day
	}
	return b.Hour < o.Hour
}

// TrafficState is the fitted state of a TrafficClassifier
type TrafficState struct {
	TrafficBuckets []Bucket `json:"traffic_buckets"`
	FreeBuckets    []Bucket `json:"free_buckets"`
}

// TrafficConfig configures a TrafficClassifier
type TrafficConfig struct {
	Match MatchMode `json:"match"`
}

// TrafficClassifier labels rows as congested or free-flowing from the median
// log-log average speed of their (day_of_week, hour) bucket in training data.
type TrafficClassifier struct {
	log   *zap.Logger
	match MatchMode

	state   TrafficState
	traffic bucketIndex
	free    bucketIndex
}

// NewTrafficClassifier creates an unfitted classifier
func NewTrafficClassifier(cfg TrafficConfig, log *zap.Logger) (*TrafficClassifier, error) {
	if !cfg.Match.Valid() {
		return nil, fmt.Errorf("unknown match mode %q", cfg.Match)
	}
	if cfg.Match == "" {
		cfg.Match = MatchCoordinates
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TrafficClassifier{log: log, match: cfg.Match}, nil
}

// RestoreTrafficClassifier rebuilds a fitted classifier from a saved state
func RestoreTrafficClassifier(cfg TrafficConfig, state TrafficState, log *zap.Logger) (*TrafficClassifier, error) {
	c, err := NewTrafficClassifier(cfg, log)
	if err != nil {
		return nil, err
	}
	c.setState(state)
	return c, nil
}

// MatchMode returns the configured match mode
func (c *TrafficClassifier) MatchMode() MatchMode {
	return c.match
}

// State returns a copy of the fitted state
func (c *TrafficClassifier) State() TrafficState {
	return TrafficState{
		TrafficBuckets: append(make([]Bucket, 0, len(c.state.TrafficBuckets)), c.state.TrafficBuckets...),
		FreeBuckets:    append(make([]Bucket, 0, len(c.state.FreeBuckets)), c.state.FreeBuckets...),
	}
}

func (c *TrafficClassifier) setState(state TrafficState) {
	c.state = state
	c.traffic = newBucketIndex(state.TrafficBuckets)
	c.free = newBucketIndex(state.FreeBuckets)
}

// Fit learns the traffic and free-flow buckets
func (c *TrafficClassifier) Fit(df dataframe.DataFrame) error {
	days, err := intColumn(df, ColDayOfWeek)
	if err != nil {
		return err
	}
	hours, err := intColumn(df, ColHour)
	if err != nil {
		return err
	}
	distances, err := floatColumn(df, ColLogHaversine)
	if err != nil {
		return err
	}
	durations, err := floatColumn(df, ColLogTripDuration)
	if err != nil {
		return err
	}

	speeds := make(map[Bucket][]float64)
	for i := range days {
		b := Bucket{Day: days[i], Hour: hours[i]}
		speeds[b] = append(speeds[b], distances[i]/durations[i])
	}

	buckets := make([]Bucket, 0, len(speeds))
	for b := range speeds {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].less(buckets[j]) })

	medians := make([]float64, len(buckets))
	for i, b := range buckets {
		medians[i] = stats.Median(speeds[b])
	}

	thresholds := stats.Quantiles(medians, trafficQuantile, freeQuantile)
	low, high := thresholds[0], thresholds[1]

	state := TrafficState{
		TrafficBuckets: []Bucket{},
		FreeBuckets:    []Bucket{},
	}
	for i, b := range buckets {
		if medians[i] < low {
			state.TrafficBuckets = append(state.TrafficBuckets, b)
		}
		if medians[i] > high {
			state.FreeBuckets = append(state.FreeBuckets, b)
		}
	}
	c.setState(state)

	c.log.Info("traffic classifier fitted",
		zap.Int("rows", len(days)),
		zap.Int("buckets", len(buckets)),
		zap.Float64("traffic_threshold", low),
		zap.Float64("free_threshold", high),
		zap.Int("traffic_buckets", len(state.TrafficBuckets)),
		zap.Int("free_buckets", len(state.FreeBuckets)),
	)
	return nil
}

// Transform appends the trafic and no_trafic columns
func (c *TrafficClassifier) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	days, err := intColumn(df, ColDayOfWeek)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	hours, err := intColumn(df, ColHour)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	traffic := make([]bool, len(days))
	free := make([]bool, len(days))
	for i := range days {
		b := Bucket{Day: days[i], Hour: hours[i]}
		traffic[i] = c.traffic.contains(b, c.match)
		free[i] = c.free.contains(b, c.match)
	}

	out := df.
		Mutate(series.New(traffic, series.Bool, ColTraffic)).
		Mutate(series.New(free, series.Bool, ColNoTraffic))
	if err := out.Error(); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to append traffic columns: %w", err)
	}
	return out, nil
}

type bucketIndex struct {
	days  map[int]struct{}
	hours map[int]struct{}
	pairs map[Bucket]struct{}
}

func newBucketIndex(buckets []Bucket) bucketIndex {
	ix := bucketIndex{
		days:  make(map[int]struct{}, len(buckets)),
		hours: make(map[int]struct{}, len(buckets)),
		pairs: make(map[Bucket]struct{}, len(buckets)),
	}
	for _, b := range buckets {
		ix.days[b.Day] = struct{}{}
		ix.hours[b.Hour] = struct{}{}
		ix.pairs[b] = struct{}{}
	}
	return ix
}

func (ix bucketIndex) contains(b Bucket, mode MatchMode) bool {
	if mode == MatchPairs {
		_, ok := ix.pairs[b]
		return ok
	}
	_, day := ix.days[b.Day]
	_, hour := ix.hours[b.Hour]
	return day && hour
}
