package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/isd-weather-etl/internal/domain"
	"github.com/couchcryptid/isd-weather-etl/internal/observability"
	"github.com/couchcryptid/isd-weather-etl/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStationKey = "010010-99999-2010"

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockLoader struct {
	failures int
	calls    int
	loaded   []domain.Observation
}

func (m *mockLoader) LoadBatch(_ context.Context, observations []domain.Observation) error {
	m.calls++
	if m.calls <= m.failures {
		return errors.New("broker unavailable")
	}
	m.loaded = append(m.loaded, observations...)
	return nil
}

func newTestMetrics() *observability.Metrics {
	// Use unregistered collectors to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawEvent{
		{makeRawEvent(isdLine(0), 0), makeRawEvent(isdLine(1), 1)},
		{makeRawEvent(isdLine(2), 2)},
	}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, pipeline.NewTransformer(slog.Default()), ldr, slog.Default(), newTestMetrics(), 10)
	require.Error(t, p.CheckReadiness(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	require.Len(t, ldr.loaded, 3)
	for i, obs := range ldr.loaded {
		assert.Equal(t, i, obs.Hour)
		assert.False(t, obs.ProcessedAt.IsZero())
	}
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no batches, will block
	ldr := &mockLoader{}

	p := pipeline.New(ext, pipeline.NewTransformer(slog.Default()), ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, ldr.loaded)
}

func TestPipeline_Run_MalformedLineSkipped(t *testing.T) {
	var committed []int64
	commit := func(offset int64) func(context.Context) error {
		return func(context.Context) error {
			committed = append(committed, offset)
			return nil
		}
	}

	bad := makeRawEvent("0000 too short", 0)
	bad.Commit = commit(0)
	good := makeRawEvent(isdLine(6), 1)
	good.Commit = commit(1)

	ext := &mockExtractor{batches: [][]domain.RawEvent{{bad, good}}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, pipeline.NewTransformer(slog.Default()), ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, 6, ldr.loaded[0].Hour)
	assert.Equal(t, []int64{0, 1}, committed, "bad line is committed before the loaded one")
}

func TestPipeline_Run_AllMalformed(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawEvent{{makeRawEvent("", 0)}}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, pipeline.NewTransformer(slog.Default()), ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
	assert.Zero(t, ldr.calls)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	commitCalled := false
	raw := makeRawEvent(isdLine(0), 0)
	raw.Commit = func(_ context.Context) error {
		commitCalled = true
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{failures: 1}

	p := pipeline.New(ext, pipeline.NewTransformer(slog.Default()), ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 1, ldr.calls)
	assert.Empty(t, ldr.loaded)
	assert.False(t, commitCalled)
}

func TestISDTransformer_Transform(t *testing.T) {
	fixed := time.Date(2026, time.April, 26, 15, 10, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() {
		domain.SetClock(nil)
	})

	tfm := pipeline.NewTransformer(slog.Default())

	t.Run("valid line", func(t *testing.T) {
		line := isdLine(12, domain.Precipitation{PeriodHours: 6, DepthMM: 2.5})
		obs, err := tfm.Transform(context.Background(), makeRawEvent(line, 0))
		require.NoError(t, err)

		assert.Equal(t, fixed, obs.ProcessedAt)
		assert.Equal(t, domain.PrecipCodeLight, obs.PrecipCode)
		require.NotNil(t, obs.RelativeHumidity)
		assert.InDelta(t, 72.0, *obs.RelativeHumidity, 0)
	})

	t.Run("malformed line", func(t *testing.T) {
		_, err := tfm.Transform(context.Background(), makeRawEvent("garbage", 17))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrMalformedRecord)
		assert.Contains(t, err.Error(), "offset 17")
	})
}

func TestStationProcessor_Process(t *testing.T) {
	lines := make([]string, 0, 1000)
	for i := range 1000 {
		lines = append(lines, isdLineAt(i/60%24, i%60))
	}
	lines[3] = "not an isd line"
	lines[700] = lines[700][:50]

	sp := pipeline.NewStationProcessor(4, slog.Default(), newTestMetrics())
	res, err := sp.Process(context.Background(), testStationKey, lines)
	require.NoError(t, err)

	assert.Equal(t, testStationKey, res.Key)
	require.Len(t, res.Observations, 998)
	require.Len(t, res.Malformed, 2)

	want := 0
	for _, obs := range res.Observations {
		if want == 3 || want == 700 {
			want++
		}
		assert.Equal(t, want/60%24, obs.Hour)
		assert.Equal(t, want%60, obs.Minute)
		want++
	}

	var mre *domain.MalformedRecordError
	require.True(t, errors.As(res.Malformed[0], &mre))
	assert.Equal(t, testStationKey, mre.Station)
	assert.Equal(t, 4, mre.Line)
	require.True(t, errors.As(res.Malformed[1], &mre))
	assert.Equal(t, 701, mre.Line)

	wantSummary := domain.StationSummary{USAFID: 10010, WBAN: 99999, Year: 2010, Lat: 70.933, Lon: -8.667, Elevation: 9}
	if diff := cmp.Diff(wantSummary, res.Summary); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestStationProcessor_BlankLinesKeepLineNumbers(t *testing.T) {
	lines := []string{isdLine(0), "", isdLine(1), "   ", "bad", isdLine(2)}

	res, err := pipeline.NewStationProcessor(2, slog.Default(), newTestMetrics()).Process(context.Background(), testStationKey, lines)
	require.NoError(t, err)

	require.Len(t, res.Observations, 3)
	require.Len(t, res.Malformed, 1, "blank lines are not malformed")
	var mre *domain.MalformedRecordError
	require.True(t, errors.As(res.Malformed[0], &mre))
	assert.Equal(t, 5, mre.Line)
}

func TestStationProcessor_SingleWorkerMatchesMany(t *testing.T) {
	lines := make([]string, 0, 300)
	for i := range 300 {
		lines = append(lines, isdLineAt(i%24, i%60))
	}

	one, err := pipeline.NewStationProcessor(1, slog.Default(), newTestMetrics()).Process(context.Background(), testStationKey, lines)
	require.NoError(t, err)
	many, err := pipeline.NewStationProcessor(8, slog.Default(), newTestMetrics()).Process(context.Background(), testStationKey, lines)
	require.NoError(t, err)

	require.Len(t, many.Observations, len(one.Observations))
	for i := range one.Observations {
		assert.Equal(t, one.Observations[i].ID, many.Observations[i].ID)
	}
}

func TestStationProcessor_Empty(t *testing.T) {
	sp := pipeline.NewStationProcessor(0, slog.Default(), newTestMetrics())

	t.Run("no lines", func(t *testing.T) {
		_, err := sp.Process(context.Background(), testStationKey, nil)
		assert.ErrorIs(t, err, domain.ErrEmptySequence)
	})

	t.Run("only malformed lines", func(t *testing.T) {
		res, err := sp.Process(context.Background(), testStationKey, []string{"x", "y"})
		assert.ErrorIs(t, err, domain.ErrEmptySequence)
		assert.Len(t, res.Malformed, 2)
		assert.Contains(t, err.Error(), testStationKey)
	})
}

func TestStationProcessor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lines := make([]string, 2000)
	for i := range lines {
		lines[i] = isdLine(0)
	}
	_, err := pipeline.NewStationProcessor(2, slog.Default(), newTestMetrics()).Process(ctx, testStationKey, lines)
	assert.ErrorIs(t, err, context.Canceled)
}

// --- helpers ---

func isdLine(hour int, groups ...domain.AdditionalGroup) string {
	return isdLineAt(hour, 0, groups...)
}

func isdLineAt(hour, minute int, groups ...domain.AdditionalGroup) string {
	temp, dew := 288.2, 10.0
	return domain.EncodeLine(domain.MandatoryFields{
		USAFID: 10010, WBAN: 99999,
		Year: 2010, Month: 1, Day: 1, Hour: hour, Minute: minute,
		Lat: 70.933, Lon: -8.667, Elevation: 9,
		Temperature: &temp,
		DewPoint:    &dew,
	}, groups...)
}

func makeRawEvent(line string, offset int64) domain.RawEvent {
	return domain.RawEvent{
		Key:    []byte(testStationKey),
		Value:  []byte(line),
		Topic:  "raw-isd-lines",
		Offset: offset,
		Headers: map[string]string{
			"station": fmt.Sprintf("%06d-%05d", 10010, 99999),
		},
	}
}
