package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/govsim/internal/modules/allocation"
)

func dialSeries(t *testing.T, query string) (*websocket.Conn, context.Context) {
	t.Helper()
	s := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/series" + query
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn, ctx
}

func readSeries(t *testing.T, ctx context.Context, conn *websocket.Conn) []SeriesFrame {
	t.Helper()
	var frames []SeriesFrame
	for {
		var frame SeriesFrame
		require.NoError(t, wsjson.Read(ctx, conn, &frame))
		frames = append(frames, frame)
		if frame.Done || frame.Error != nil {
			return frames
		}
	}
}

func TestSeriesStream_DegradationPath(t *testing.T) {
	conn, ctx := dialSeries(t, "")
	score := 3.0

	require.NoError(t, wsjson.Write(ctx, conn, SeriesRequest{
		Series:          SeriesDegradationPath,
		Capital:         100,
		GovernanceScore: &score,
		ShockType:       "liquidity_drop",
	}))

	frames := readSeries(t, ctx, conn)
	require.Len(t, frames, 8, "seven days then a done frame")
	assert.Equal(t, 1.0, frames[0].X)
	assert.InDelta(t, 97.5, frames[0].Y, 1e-9)
	assert.InDelta(t, 82.5, frames[6].Y, 1e-9)
	assert.True(t, frames[7].Done)
	assert.Equal(t, 7, frames[7].Seq)
}

func TestSeriesStream_SensitivitySweep(t *testing.T) {
	conn, ctx := dialSeries(t, "")

	require.NoError(t, wsjson.Write(ctx, conn, SeriesRequest{
		Series: SeriesSensitivitySweep,
		Params: allocation.Params{TotalCapital: 100},
		Units: []allocation.UnitInput{
			{ID: "a", GovernanceScore: 4},
			{ID: "b", GovernanceScore: 4},
		},
	}))

	frames := readSeries(t, ctx, conn)
	require.Len(t, frames, allocation.DefaultSweepPoints+1)
	// each unit holds 50: mean duration is 50 × c / 5
	assert.InDelta(t, 0.1, frames[0].X, 1e-12)
	assert.InDelta(t, 1.0, frames[0].Y, 1e-9)
	assert.InDelta(t, 1.0, frames[9].X, 1e-12)
	assert.InDelta(t, 10.0, frames[9].Y, 1e-9)
}

func TestSeriesStream_ErrorsKeepConnection(t *testing.T) {
	conn, ctx := dialSeries(t, "?session=chart")

	require.NoError(t, wsjson.Write(ctx, conn, SeriesRequest{Series: "bogus"}))
	frames := readSeries(t, ctx, conn)
	require.Len(t, frames, 1)
	require.NotNil(t, frames[0].Error)
	assert.Equal(t, "validation_error", string(frames[0].Error.Kind))

	require.NoError(t, wsjson.Write(ctx, conn, SeriesRequest{
		Series:    SeriesDegradationPath,
		Capital:   100,
		ShockType: "liquidity_drop",
	}))
	frames = readSeries(t, ctx, conn)
	require.Len(t, frames, 1, "the chart session has no score yet")
	assert.Equal(t, "validation_error", string(frames[0].Error.Kind))

	score := 9.0
	require.NoError(t, wsjson.Write(ctx, conn, SeriesRequest{
		Series:          SeriesDegradationPath,
		Capital:         100,
		GovernanceScore: &score,
		ShockType:       "meteor",
	}))
	frames = readSeries(t, ctx, conn)
	require.Len(t, frames, 1)
	assert.Equal(t, "invalid_shock_type", string(frames[0].Error.Kind))
}

func TestSeriesStream_PathTooLong(t *testing.T) {
	conn, ctx := dialSeries(t, "")
	score := 0.0

	require.NoError(t, wsjson.Write(ctx, conn, SeriesRequest{
		Series:          SeriesDegradationPath,
		Capital:         1e12,
		GovernanceScore: &score,
		ShockType:       "operational_loss",
	}))

	frames := readSeries(t, ctx, conn)
	require.Len(t, frames, 1)
	require.NotNil(t, frames[0].Error)
	assert.Equal(t, "validation_error", string(frames[0].Error.Kind))
}
