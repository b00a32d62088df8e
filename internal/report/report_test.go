package report

import (
	"strings"
	"testing"
	"time"

	"goviper/domain/activity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun() *activity.Run {
	res := activity.NewResult([]string{"TF1", "TF2", "TF3"}, []string{"s1", "s2"})
	nes := [][]float64{{1.0, -4.0}, {-3.0, 0.5}, {2.0, 2.0}}
	for i := range nes {
		for j, v := range nes[i] {
			res.NES.Set(i, j, v)
			res.ES.Set(i, j, v/10)
		}
	}
	return &activity.Run{
		ID:        "run-1",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Options:   activity.DefaultOptions(),
		Result:    res,
		Warnings:  []string{"null model supplied"},
	}
}

func TestTopRegulators_RanksByAbsoluteNES(t *testing.T) {
	run := sampleRun()

	top := TopRegulators(run, 0, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "TF2", top[0].Regulator)
	assert.Equal(t, "TF3", top[1].Regulator)
	assert.InDelta(t, -0.3, top[0].Spread, 1e-12)
	assert.Less(t, top[0].PValue, top[1].PValue)

	all := TopRegulators(run, 1, 0)
	assert.Len(t, all, 3)
	assert.Equal(t, "TF1", all[0].Regulator)
}

func TestMarkdownAndHTML(t *testing.T) {
	run := sampleRun()

	md := Markdown(run, 2)
	assert.Contains(t, md, "# Regulator activity run run-1")
	assert.Contains(t, md, "## s1")
	assert.Contains(t, md, "| 1 | TF2 | -3.000 |")
	assert.Contains(t, md, "null model supplied")
	assert.NotContains(t, strings.SplitN(md, "## s2", 2)[0], "| TF1 |")

	out := string(HTML(run, 2))
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<h2")
	assert.Contains(t, out, "TF2")
}

func TestMarkdown_EmptyResult(t *testing.T) {
	run := &activity.Run{ID: "empty", Result: activity.NewResult(nil, []string{"s1"})}
	assert.Contains(t, Markdown(run, 5), "No regulator reached the minimum regulon size.")
}
