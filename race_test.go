package paysheet

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRaceStatus_ProducerWins(t *testing.T) {
	status, timedOut, err := raceStatus(context.Background(), time.Second, UpdateFail,
		func(ctx context.Context) (UpdateStatus, error) {
			return UpdateSuccess, nil
		})

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if timedOut {
		t.Error("Expected producer to win, got timeout")
	}
	if status != UpdateSuccess {
		t.Errorf("Expected success, got %v", status)
	}
}

func TestRaceStatus_TimeoutWins(t *testing.T) {
	status, timedOut, err := raceStatus(context.Background(), 20*time.Millisecond, CompletionFail,
		func(ctx context.Context) (CompletionStatus, error) {
			<-ctx.Done()
			return CompletionSuccess, ctx.Err()
		})

	if err != nil {
		t.Fatalf("Expected no error on timeout, got %v", err)
	}
	if !timedOut {
		t.Error("Expected timeout to win")
	}
	if status != CompletionFail {
		t.Errorf("Expected fallback fail, got %v", status)
	}
}

func TestRaceStatus_ProducerErrorPropagates(t *testing.T) {
	boom := errors.New("charge declined upstream")

	_, timedOut, err := raceStatus(context.Background(), time.Second, CompletionFail,
		func(ctx context.Context) (CompletionStatus, error) {
			return "", boom
		})

	if !errors.Is(err, boom) {
		t.Fatalf("Expected producer error, got %v", err)
	}
	if timedOut {
		t.Error("Error settled inside the window, timedOut should be false")
	}
}

func TestRaceStatus_LateLoserIsInert(t *testing.T) {
	produced := make(chan UpdateStatus, 1)

	status, timedOut, err := raceStatus(context.Background(), 15*time.Millisecond, UpdateFail,
		func(ctx context.Context) (UpdateStatus, error) {
			time.Sleep(60 * time.Millisecond)
			produced <- UpdateSuccess
			return UpdateSuccess, nil
		})

	if err != nil || !timedOut || status != UpdateFail {
		t.Fatalf("Expected timeout fallback, got status=%v timedOut=%v err=%v", status, timedOut, err)
	}

	// The late result lands in a buffer nobody reads; the outcome above is
	// already final.
	select {
	case <-produced:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("Producer never finished")
	}
}

func TestRaceStatus_CancelsProducerContextAfterTimeout(t *testing.T) {
	canceled := make(chan struct{})

	_, timedOut, _ := raceStatus(context.Background(), 10*time.Millisecond, UpdateFail,
		func(ctx context.Context) (UpdateStatus, error) {
			go func() {
				<-ctx.Done()
				close(canceled)
			}()
			time.Sleep(50 * time.Millisecond)
			return UpdateSuccess, nil
		})

	if !timedOut {
		t.Fatal("Expected timeout")
	}
	select {
	case <-canceled:
	case <-time.After(200 * time.Millisecond):
		t.Error("Producer context was not canceled after the race settled")
	}
}

func TestRaceStatus_ParentContextFlowsThrough(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := raceStatus(parent, time.Second, UpdateFail,
		func(ctx context.Context) (UpdateStatus, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled from producer, got %v", err)
	}
}
