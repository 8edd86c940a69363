package pipeline

import "time"

// runEmitter drains result_queue in order and hands each event to the
// sink (the control plane's outbound send), polling every
// emitterPollInterval when nothing is immediately available.
func (p *Pipeline) runEmitter() {
	defer p.wg.Done()

	ticker := time.NewTicker(emitterPollInterval)
	defer ticker.Stop()

	for {
		select {
		case evt := <-p.resultQueue:
			p.sink(evt)
		case <-p.stopCh:
			p.drainRemaining()
			return
		case <-ticker.C:
		}
	}
}

func (p *Pipeline) drainRemaining() {
	for {
		select {
		case evt := <-p.resultQueue:
			p.sink(evt)
		default:
			return
		}
	}
}
