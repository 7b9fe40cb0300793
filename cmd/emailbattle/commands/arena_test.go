package commands

import (
	"sync"
	"testing"
	"time"

	"github.com/haivivi/emailbattle/cmd/emailbattle/internal/config"
	"github.com/haivivi/emailbattle/pkg/battle"
	"github.com/haivivi/emailbattle/pkg/battleserver"
)

func newTestArena(t *testing.T) *arena {
	t.Helper()
	a, err := newArena(&config.Config{
		ModelsDir:   writeTestYAML(t, "scripted.yaml", scriptedModels),
		Evaluator:   "judge",
		Respondent:  "clerk",
		MaxRounds:   3,
		CallTimeout: time.Minute,
	})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func runArenaBattle(t *testing.T, a *arena) *battle.State {
	t.Helper()
	b, err := a.Start(battleserver.StartRequest{})
	if err != nil {
		t.Error(err)
		return nil
	}
	st, err := b.Engine.Run(t.Context(), b.State)
	if err != nil {
		t.Errorf("Run: %v", err)
	}
	return st
}

func TestArenaBattlesReplayFromStart(t *testing.T) {
	a := newTestArena(t)
	for i := range 2 {
		st := runArenaBattle(t, a)
		if st == nil {
			t.Fatalf("battle %d did not start", i)
		}
		if st.Outcome != battle.OutcomeTerminated || st.FollowUpRound != 1 || len(st.Transcript) != 5 {
			t.Errorf("battle %d: outcome/round/len = %s/%d/%d, want TERMINATED/1/5",
				i, st.Outcome, st.FollowUpRound, len(st.Transcript))
		}
	}
}

func TestArenaConcurrentBattles(t *testing.T) {
	a := newTestArena(t)
	var wg sync.WaitGroup
	states := make([]*battle.State, 4)
	for i := range states {
		wg.Add(1)
		go func() {
			defer wg.Done()
			states[i] = runArenaBattle(t, a)
		}()
	}
	wg.Wait()
	for i, st := range states {
		if st == nil || st.Outcome != battle.OutcomeTerminated || len(st.Transcript) != 5 {
			t.Errorf("battle %d = %+v", i, st)
		}
	}
}
