package main

import (
	"github.com/Ojal2/llm-analysis-quiz-ojal/cmd/quiz-cli/commands"
	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
