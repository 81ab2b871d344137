package eventloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type LoopTestSuite struct {
	suite.Suite
	loop   *Loop
	cancel context.CancelFunc
	exited chan struct{}
}

func TestLoopSuite(t *testing.T) {
	suite.Run(t, new(LoopTestSuite))
}

func (suite *LoopTestSuite) SetupTest() {
	suite.loop = New(16, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	suite.cancel = cancel
	suite.exited = make(chan struct{})

	go func() {
		defer close(suite.exited)
		suite.NoError(suite.loop.Run(ctx))
	}()
}

func (suite *LoopTestSuite) TearDownTest() {
	suite.cancel()
	<-suite.exited
}

func (suite *LoopTestSuite) TestEventsRunInOrder() {
	var got []int

	for i := range 10 {
		suite.Require().NoError(suite.loop.Post(func() { got = append(got, i) }))
	}

	suite.Require().NoError(suite.loop.Call(context.Background(), func() {}))
	suite.Equal([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func (suite *LoopTestSuite) TestConcurrentPostersAreSerialized() {
	counter := 0

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 100 {
				suite.NoError(suite.loop.Post(func() { counter++ }))
			}
		}()
	}

	wg.Wait()

	var final int

	suite.Require().NoError(suite.loop.Call(context.Background(), func() { final = counter }))
	suite.Equal(800, final)
}

func (suite *LoopTestSuite) TestPanicDoesNotStopLoop() {
	suite.Require().NoError(suite.loop.Post(func() { panic("boom") }))

	ran := false

	suite.Require().NoError(suite.loop.Call(context.Background(), func() { ran = true }))
	suite.True(ran)
}

func (suite *LoopTestSuite) TestPostAfterStopFails() {
	suite.cancel()
	<-suite.exited

	err := suite.loop.Post(func() {})
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeLoopStopped))

	err = suite.loop.Call(context.Background(), func() {})
	suite.True(errors.HasCode(err, errors.ErrCodeLoopStopped))
}

func (suite *LoopTestSuite) TestCallHonoursContext() {
	block := make(chan struct{})
	defer close(block)

	suite.Require().NoError(suite.loop.Post(func() { <-block }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := suite.loop.Call(ctx, func() {})
	suite.ErrorIs(err, context.DeadlineExceeded)
}

func (suite *LoopTestSuite) TestEveryPostsTicks() {
	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan time.Time, 8)

	go func() {
		_ = suite.loop.Every(ctx, 5*time.Millisecond, func(now time.Time) {
			select {
			case ticks <- now:
			default:
			}
		})
	}()

	defer cancel()

	select {
	case now := <-ticks:
		suite.False(now.IsZero())
	case <-time.After(time.Second):
		suite.Fail("no tick delivered")
	}
}

func (suite *LoopTestSuite) TestRunnerPostsCompletion() {
	runner := NewRunner(context.Background(), suite.loop)
	done := make(chan string, 1)

	runner.Go(func(ctx context.Context) func() {
		result := "acked"

		return func() { done <- result }
	})

	runner.Go(func(ctx context.Context) func() { return nil })
	runner.Wait()

	select {
	case got := <-done:
		suite.Equal("acked", got)
	case <-time.After(time.Second):
		suite.Fail("completion not posted")
	}
}
