package power

// FakeManager is a test double that records mode transitions.
type FakeManager struct {
	// Reason is returned by BootReason.
	Reason BootReason

	// DeepSleeps counts EnterDeepSleep calls.
	DeepSleeps int

	// Hibernates records the wake source of each EnterHibernate call.
	Hibernates []WakeSource

	// DeepSleepError and HibernateError, if set, are returned by the calls.
	DeepSleepError error
	HibernateError error

	// OnDeepSleep and OnHibernate, if set, run inside the calls; tests use
	// them to raise the wake interrupt while "asleep".
	OnDeepSleep func()
	OnHibernate func()
}

// NewFakeManager creates a FakeManager reporting the given boot reason.
func NewFakeManager(reason BootReason) *FakeManager {
	return &FakeManager{Reason: reason}
}

// EnterDeepSleep records the call.
func (f *FakeManager) EnterDeepSleep() error {
	f.DeepSleeps++
	if f.DeepSleepError != nil {
		return f.DeepSleepError
	}
	if f.OnDeepSleep != nil {
		f.OnDeepSleep()
	}
	return nil
}

// EnterHibernate records the call.
func (f *FakeManager) EnterHibernate(src WakeSource) error {
	f.Hibernates = append(f.Hibernates, src)
	if f.HibernateError != nil {
		return f.HibernateError
	}
	if f.OnHibernate != nil {
		f.OnHibernate()
	}
	return nil
}

// BootReason returns Reason.
func (f *FakeManager) BootReason() BootReason {
	return f.Reason
}
