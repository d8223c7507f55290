// Command matchcheck runs the skill-match pipeline from the shell.
//
//	matchcheck analyze --resume cv.pdf --jd job.txt
//	matchcheck analyze --batch resumes/ --jd job.txt --concurrency 8
//	matchcheck extract --in answer.txt
//	matchcheck extract --batch answers/ --strict
package main

import (
	"os"

	"careerpilot-backend/internal/shared/config"
)

func main() {
	if err := newRootCmd(config.Load()).Execute(); err != nil {
		os.Exit(1)
	}
}
