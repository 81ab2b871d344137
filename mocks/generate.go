package mocks

//go:generate mockgen -destination=./mock_broker.go -package=mocks github.com/rxtech-lab/argo-futures/internal/broker Broker
//go:generate mockgen -destination=./mock_sink.go -package=mocks github.com/rxtech-lab/argo-futures/internal/journal Sink
//go:generate mockgen -destination=./mock_strategy.go -package=mocks github.com/rxtech-lab/argo-futures/internal/strategy Strategy
