package metrics

func (m *Metrics) IncrementJoin(waitlisted bool) {
	m.safeExecute("IncrementJoin", func() {
		result := "confirmed"
		if waitlisted {
			result = "waitlist"
		}
		m.ActivityJoinsTotal.WithLabelValues(result).Inc()
	})
}

func (m *Metrics) IncrementLeave() {
	m.safeExecute("IncrementLeave", func() {
		m.ActivityLeavesTotal.Inc()
	})
}

func (m *Metrics) AddPromotions(n int) {
	m.safeExecute("AddPromotions", func() {
		m.WaitlistPromotionsTotal.Add(float64(n))
	})
}

func (m *Metrics) IncrementFavoriteToggle(favorited bool) {
	m.safeExecute("IncrementFavoriteToggle", func() {
		action := "removed"
		if favorited {
			action = "added"
		}
		m.FavoriteTogglesTotal.WithLabelValues(action).Inc()
	})
}

func (m *Metrics) IncrementMessageSent() {
	m.safeExecute("IncrementMessageSent", func() {
		m.MessagesSentTotal.Inc()
	})
}

func (m *Metrics) AddReconcileFixes(n int) {
	m.safeExecute("AddReconcileFixes", func() {
		m.ReconcileFixesTotal.Add(float64(n))
	})
}

// WebsocketOpened and WebsocketClosed track live chat connections.
func (m *Metrics) WebsocketOpened() {
	m.safeExecute("WebsocketOpened", func() {
		m.WebsocketConnections.Inc()
	})
}

func (m *Metrics) WebsocketClosed() {
	m.safeExecute("WebsocketClosed", func() {
		m.WebsocketConnections.Dec()
	})
}
