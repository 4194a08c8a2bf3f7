package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConfessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "banter_confessions_created_total",
		Help: "Confessions posted.",
	})

	CommentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "banter_comments_created_total",
		Help: "Comments posted.",
	})

	ReactionsToggled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "banter_reactions_toggled_total",
		Help: "Reaction toggles by outcome.",
	}, []string{"outcome"}) // added, removed, switched

	PointsEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "banter_points_events_total",
		Help: "Point ledger mutations by reason.",
	}, []string{"reason"})

	BadgesGranted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "banter_badges_granted_total",
		Help: "Badge unlocks.",
	})

	OutboxDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "banter_outbox_dispatched_total",
		Help: "Outbox events applied, by kind.",
	}, []string{"kind"})

	ChatMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "banter_chat_messages_total",
		Help: "Global chat messages persisted.",
	})
)
