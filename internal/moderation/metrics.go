package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messagesChecked = promauto.NewCounter(prometheus.CounterOpts{
	Name: "guard_messages_checked",
	Help: "Number of group messages run through the moderation pipeline",
})

var gateDeletions = promauto.NewCounter(prometheus.CounterOpts{
	Name: "guard_gate_deletions",
	Help: "Number of messages deleted because the sender has no nickname",
})

var offenseCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guard_offenses",
	Help: "Number of insults detected, by resulting escalation state",
}, []string{"state"})

var commandCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guard_commands",
	Help: "Number of commands handled",
}, []string{"command"})

var actionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guard_actions_applied",
	Help: "Number of transport actions applied successfully",
}, []string{"kind"})

var actionErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guard_action_errors",
	Help: "Number of transport actions that failed",
}, []string{"kind"})
