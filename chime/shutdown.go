package chime

// CancelPending cancels the next chime if it has not started running.
// The schedule itself stays open and reschedules from the tail.
func CancelPending(s *Schedule) bool {
	return s.CancelCurrent(false)
}

// Shutdown closes the schedule, cancelling the pending chime. A
// callback already running is left to finish.
func Shutdown(s *Schedule) error {
	return s.Close()
}

// ShutdownNow closes the schedule like Shutdown and additionally
// cancels the context of a callback currently running.
func ShutdownNow(s *Schedule) error {
	err := s.Close()
	s.interrupt()
	return err
}
