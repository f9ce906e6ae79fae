/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

const _startTime = "gorm:start_time"

var (
	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "grimnir",
		Subsystem: "sequencer_db",
		Name:      "query_duration_seconds",
		Help:      "Catalog store query duration by operation and table",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "table"})

	queryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grimnir",
		Subsystem: "sequencer_db",
		Name:      "errors_total",
		Help:      "Catalog store query errors by operation",
	}, []string{"operation"})
)

// RegisterCallbacks wires timing callbacks around every CRUD operation.
func RegisterCallbacks(database *gorm.DB) error {
	cb := database.Callback()
	steps := []struct {
		op     string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
	}

	for _, s := range steps {
		if err := s.before("metrics:before_"+s.op, beforeCallback); err != nil {
			return err
		}
		if err := s.after("metrics:after_"+s.op, afterCallback(s.op)); err != nil {
			return err
		}
	}
	return nil
}

func beforeCallback(tx *gorm.DB) {
	tx.InstanceSet(_startTime, time.Now())
}

func afterCallback(operation string) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		v, ok := tx.InstanceGet(_startTime)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}

		table := tx.Statement.Table
		if table == "" {
			table = "unknown"
		}
		queryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())

		if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			queryErrors.WithLabelValues(operation).Inc()
		}
	}
}
