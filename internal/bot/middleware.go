package bot

func (b *Bot) withRecovery(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			if b.metrics != nil {
				b.metrics.ErrorsTotal.Inc()
			}
			b.logger.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}

// goSafe runs fn in the background under the same recovery as updates.
func (b *Bot) goSafe(fn func()) {
	go b.withRecovery(fn)
}
