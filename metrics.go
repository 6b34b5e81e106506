package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aircombat_sessions_active",
		Help: "Number of live game sessions.",
	})
	metricPlayers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aircombat_players_active",
		Help: "Players currently in a session.",
	})
	metricConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aircombat_connections_open",
		Help: "Open websocket connections.",
	})
	metricTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aircombat_ticks_total",
		Help: "Simulation ticks executed across all sessions.",
	})
	metricProjectiles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aircombat_projectiles_spawned_total",
		Help: "Projectiles spawned.",
	})
	metricCollisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aircombat_collisions_total",
		Help: "Collisions resolved, by type.",
	}, []string{"type"})
	metricRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aircombat_rejected_total",
		Help: "Client inputs rejected by validation, by kind.",
	}, []string{"kind"})
	metricBroadcastBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aircombat_broadcast_bytes_total",
		Help: "Binary state bytes sent to clients.",
	})
	metricRewardFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aircombat_reward_failures_total",
		Help: "Token awards abandoned after retries.",
	})
)
