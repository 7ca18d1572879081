package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestHeaderPairs_RoundTrip(t *testing.T) {
	job := &CronJob{}
	pairs := []HeaderPair{
		{Key: "X-Cron-Token", Value: "t"},
		{Key: "Accept", Value: "application/json"},
	}
	job.SetHeaderPairs(pairs)
	assert.Equal(t, pairs, job.HeaderPairs())
}

func TestHeaderPairs_EmptyAndCorrupt(t *testing.T) {
	job := &CronJob{}
	assert.Empty(t, job.HeaderPairs())

	job.Headers = datatypes.JSON(`{not json`)
	assert.Empty(t, job.HeaderPairs())
}

func TestHasBody(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		want   bool
	}{
		{"post with body", "POST", `{"a":1}`, true},
		{"put with body", "PUT", `{"a":1}`, true},
		{"get with body", "GET", `{"a":1}`, false},
		{"delete with body", "DELETE", `{"a":1}`, false},
		{"post without body", "POST", "", false},
		{"post null body", "POST", "null", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &CronJob{Method: tt.method}
			if tt.body != "" {
				job.Body = datatypes.JSON(tt.body)
			}
			assert.Equal(t, tt.want, job.HasBody())
		})
	}
}
