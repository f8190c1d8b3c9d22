package engine

import (
	"log"
)

// LogObserver writes the lifecycle to the log. It is the default observer and
// the summary stage wrapped by richer observers.
type LogObserver struct{}

func (LogObserver) ActivityStarted(a *Activity) {
	log.Printf("%s: started %s", a.EnvName(), a.Kind)
}

func (LogObserver) ActivityFinished(a *Activity) {
	log.Printf("%s: finished %s", a.EnvName(), a.Kind)
}

// SummaryStarted logs one line per environment with its final status.
func (LogObserver) SummaryStarted(envs []*Environment) {
	log.Printf("summary:")
	for _, env := range envs {
		st, _ := env.Status()
		mark := "FAIL"
		if st.Passed() {
			mark = "ok"
		}
		log.Printf("  %s: %s (%s)", env.Name, mark, st)
	}
}

func (LogObserver) Reset() {}
