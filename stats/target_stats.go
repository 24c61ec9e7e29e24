package stats

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/NVIDIA/cloudemu/store"
)

// Sampler periodically walks the storage engine and refreshes the
// Collector's storage_entities gauges, echoing the teacher's periodic
// capacity-refresh loop (it polled mountpoint capacity on a timer; this
// polls entity counts instead).
type Sampler struct {
	engine    *store.Engine
	collector *Collector
	interval  time.Duration
}

func NewSampler(engine *store.Engine, collector *Collector, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sampler{engine: engine, collector: collector, interval: interval}
}

// Run blocks, sampling on a ticker until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) {
	s.sampleOnce(ctx)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.sampleOnce(ctx)
		}
	}
}

func (s *Sampler) sampleOnce(ctx context.Context) {
	if buckets, err := s.engine.ListBuckets(ctx); err == nil {
		s.collector.SetStorageCount("bucket", len(buckets))
	} else {
		glog.V(4).Infof("stats: sample buckets: %v", err)
	}
	if tables, err := s.engine.ListTables(ctx); err == nil {
		s.collector.SetStorageCount("table", len(tables))
	} else {
		glog.V(4).Infof("stats: sample tables: %v", err)
	}
	if queues, err := s.engine.ListQueues(ctx); err == nil {
		s.collector.SetStorageCount("queue", len(queues))
	} else {
		glog.V(4).Infof("stats: sample queues: %v", err)
	}
	if topics, err := s.engine.ListTopics(ctx); err == nil {
		s.collector.SetStorageCount("topic", len(topics))
	} else {
		glog.V(4).Infof("stats: sample topics: %v", err)
	}
	if keys, err := s.engine.ListKeys(ctx); err == nil {
		s.collector.SetStorageCount("kms_key", len(keys))
	} else {
		glog.V(4).Infof("stats: sample kms keys: %v", err)
	}
	if sms, err := s.engine.ListStateMachines(ctx); err == nil {
		s.collector.SetStorageCount("state_machine", len(sms))
	} else {
		glog.V(4).Infof("stats: sample state machines: %v", err)
	}
	if secrets, err := s.engine.ListSecrets(ctx); err == nil {
		s.collector.SetStorageCount("secret", len(secrets))
	} else {
		glog.V(4).Infof("stats: sample secrets: %v", err)
	}
	if buses, err := s.engine.ListEventBuses(ctx); err == nil {
		s.collector.SetStorageCount("event_bus", len(buses))
	} else {
		glog.V(4).Infof("stats: sample event buses: %v", err)
	}
}
