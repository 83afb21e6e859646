package worker

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// ========== 任务执行 ==========

func TestSubmitRunsTask(t *testing.T) {
	pool, err := NewPool(2, 16)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	defer pool.Release()

	done := make(chan struct{})
	pool.Submit("unit", func() error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Task never executed")
	}
}

func TestSubmitRunsAllTasks(t *testing.T) {
	pool, err := NewPool(4, 128)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	defer pool.Release()

	const tasks = 50
	var executed int64
	var wg sync.WaitGroup
	wg.Add(tasks)
	for i := 0; i < tasks; i++ {
		pool.Submit("unit", func() error {
			atomic.AddInt64(&executed, 1)
			wg.Done()
			return nil
		})
	}

	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(5 * time.Second):
		t.Fatal("Tasks did not finish in time")
	}
	if got := atomic.LoadInt64(&executed); got != tasks {
		t.Errorf("Expected %d executions, got %d", tasks, got)
	}
}

// ========== 故障隔离 ==========

func TestSubmitRecoversPanic(t *testing.T) {
	pool, err := NewPool(1, 16)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	defer pool.Release()

	pool.Submit("panicking", func() error {
		panic("boom")
	})

	// panic 被吞掉后池子仍可用
	done := make(chan struct{})
	pool.Submit("after-panic", func() error {
		close(done)
		return nil
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Pool unusable after a panicking task")
	}
}

func TestSubmitSwallowsTaskError(t *testing.T) {
	pool, err := NewPool(1, 16)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	defer pool.Release()

	done := make(chan struct{})
	pool.Submit("failing", func() error {
		defer close(done)
		return errors.New("write failed")
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Failing task never executed")
	}
}

func TestNewPoolClampsSize(t *testing.T) {
	pool, err := NewPool(0, 16)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	defer pool.Release()

	done := make(chan struct{})
	pool.Submit("clamped", func() error {
		close(done)
		return nil
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Task never executed on clamped pool")
	}
}
