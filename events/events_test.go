package events

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_RecordsInOrder(t *testing.T) {
	var seen []Event
	log := NewLog(func(e Event) { seen = append(seen, e) }, zerolog.Nop())

	log.Infof("BBC", "fetching %s", "http://example.com")
	log.Warnf("BBC", "bad date")
	log.Errorf("CNN", "timeout")

	got := log.Events()
	require.Len(t, got, 3)
	assert.Equal(t, Info, got[0].Level)
	assert.Equal(t, "fetching http://example.com", got[0].Message)
	assert.Equal(t, Warning, got[1].Level)
	assert.Equal(t, Error, got[2].Level)
	assert.Equal(t, "CNN", got[2].Source)
	assert.Equal(t, got, seen, "sink should see the same events in the same order")

	assert.Equal(t, 1, log.Count(Warning))
	assert.Equal(t, "[error] CNN: timeout", got[2].String())
}

func TestLog_ConcurrentProducersKeepPerSourceOrder(t *testing.T) {
	log := NewLog(nil, zerolog.Nop())

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				log.Infof(fmt.Sprintf("src-%d", p), "%d", i)
			}
		}(p)
	}
	wg.Wait()

	got := log.Events()
	require.Len(t, got, 200)

	next := map[string]int{}
	for _, e := range got {
		assert.Equal(t, fmt.Sprintf("%d", next[e.Source]), e.Message)
		next[e.Source]++
	}
}

func TestLog_EventsReturnsCopy(t *testing.T) {
	log := NewLog(nil, zerolog.Nop())
	log.Infof("", "one")

	got := log.Events()
	got[0].Message = "changed"

	assert.Equal(t, "one", log.Events()[0].Message)
	assert.Equal(t, "[info] one", log.Events()[0].String())
}

func TestLog_NilIsSafe(t *testing.T) {
	var log *Log
	log.Warnf("x", "ignored")
	assert.Nil(t, log.Events())
	assert.Zero(t, log.Count(Warning))
}
