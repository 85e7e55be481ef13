package fills_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apoyet/cl2pd/internal/api/mocks"
	"github.com/apoyet/cl2pd/internal/fills"
	"github.com/apoyet/cl2pd/internal/models"
	"github.com/apoyet/cl2pd/internal/timerange"
)

func ptr(t time.Time) *time.Time { return &t }

var cet = time.FixedZone("CET", 3600)

func sampleFills() []models.Fill {
	t0 := time.Date(2018, 5, 1, 10, 0, 0, 0, time.UTC)
	return []models.Fill{
		{
			Number: 6667,
			Start:  t0.Add(3 * time.Hour).In(cet),
			BeamModes: []models.BeamMode{
				{Mode: "SETUP", Start: t0.Add(3 * time.Hour), End: nil},
			},
		},
		{
			Number: 6666,
			Start:  t0,
			End:    ptr(t0.Add(2*time.Hour + 500*time.Millisecond)),
			BeamModes: []models.BeamMode{
				{Mode: "RAMP", Start: t0.Add(time.Hour), End: ptr(t0.Add(90 * time.Minute))},
				{Mode: "INJPHYS", Start: t0, End: ptr(t0.Add(time.Hour))},
			},
		},
	}
}

func TestExpand(t *testing.T) {
	summary, detail := fills.Expand(sampleFills())

	require.Len(t, summary, 2)
	assert.Equal(t, 6666, summary[0].FillNumber)
	require.NotNil(t, summary[0].Duration)
	assert.Equal(t, 2*time.Hour+500*time.Millisecond, *summary[0].Duration)
	assert.Equal(t, 6667, summary[1].FillNumber)
	assert.Nil(t, summary[1].End)
	assert.Nil(t, summary[1].Duration)
	assert.Equal(t, time.UTC, summary[1].Start.Location())

	require.Len(t, detail, 3)
	modes := []string{detail[0].Mode, detail[1].Mode, detail[2].Mode}
	assert.Equal(t, []string{"INJPHYS", "RAMP", "SETUP"}, modes)
	assert.Equal(t, 6666, detail[1].FillNumber)
	assert.Equal(t, 30*time.Minute, *detail[1].Duration)
	assert.Nil(t, detail[2].Duration)
}

func TestExpandIsIdempotent(t *testing.T) {
	records := sampleFills()
	s1, d1 := fills.Expand(records)
	s2, d2 := fills.Expand(records)
	assert.Equal(t, s1, s2)
	assert.Equal(t, d1, d2)

	// Input order is untouched.
	assert.Equal(t, 6667, records[0].Number)
}

func TestExpandEmpty(t *testing.T) {
	summary, detail := fills.Expand(nil)
	assert.Empty(t, summary)
	assert.Empty(t, detail)
}

func TestFetcherByTime(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockLoggingService(ctrl)
	logger, _ := test.NewNullLogger()
	f := fills.NewFetcher(svc, cet, logger)

	r := timerange.Range{
		Start: time.Date(2018, 5, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2018, 5, 2, 0, 0, 0, 0, time.UTC),
	}
	svc.EXPECT().
		GetFillsByTime(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, start, end time.Time) ([]models.Fill, error) {
			assert.Equal(t, cet, start.Location())
			assert.True(t, start.Equal(r.Start))
			return sampleFills(), nil
		})

	summary, detail, err := f.ByTime(context.Background(), r)
	require.NoError(t, err)
	assert.Len(t, summary, 2)
	assert.Len(t, detail, 3)

	boom := errors.New("timeout")
	svc.EXPECT().GetFillsByTime(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, boom)
	_, _, err = f.ByTime(context.Background(), r)
	assert.ErrorIs(t, err, boom)
}

func TestFetcherByNumberMatchesByTime(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockLoggingService(ctrl)
	logger, _ := test.NewNullLogger()
	f := fills.NewFetcher(svc, nil, logger)

	records := sampleFills()
	gomock.InOrder(
		svc.EXPECT().GetFillData(gomock.Any(), 6667).Return(&records[0], nil),
		svc.EXPECT().GetFillData(gomock.Any(), 1).Return(nil, nil),
		svc.EXPECT().GetFillData(gomock.Any(), 6666).Return(&records[1], nil),
	)

	summary, detail, err := f.ByNumber(context.Background(), []int{6667, 1, 6666})
	require.NoError(t, err)

	wantSummary, wantDetail := fills.Expand(records)
	assert.Equal(t, wantSummary, summary)
	assert.Equal(t, wantDetail, detail)
}

func TestFetcherByNumberAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockLoggingService(ctrl)
	f := fills.NewFetcher(svc, nil, nil)

	boom := errors.New("unavailable")
	svc.EXPECT().GetFillData(gomock.Any(), 1).Return(nil, boom)

	summary, detail, err := f.ByNumber(context.Background(), []int{1, 2})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, summary)
	assert.Nil(t, detail)
}
