package pipeline

import "github.com/nmtuan2007/echo-flux/internal/metrics"

// runTranslator pops translation jobs one at a time and emits a
// translation_update for each. TranslationRouter.Translate never errors
// to the caller; a total failure simply yields an empty
// TranslatedText, which suppresses the translation branch of the
// message.
func (p *Pipeline) runTranslator() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case job := <-p.translationQueue:
			p.translateJob(job)
		}
	}
}

func (p *Pipeline) translateJob(job translationJob) {
	if p.cfg.TranslationRouter == nil {
		return
	}
	result := p.cfg.TranslationRouter.Translate(job.text, p.cfg.SourceLang, p.cfg.TargetLang)
	if result.TranslatedText == "" {
		metrics.Errors.WithLabelValues("translator", "total_failure").Inc()
		return
	}
	metrics.TranslationRequestsTotal.WithLabelValues(string(result.Backend)).Inc()
	p.emit(Event{
		Type:               "translation_update",
		SourceText:         job.text,
		Translation:        result.TranslatedText,
		IsFinal:            true,
		EntryID:            job.entryID,
		TranslationBackend: string(result.Backend),
	})
}
