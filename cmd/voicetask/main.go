package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"

	"github.com/kazz187/voicetask/internal/config"
	"github.com/kazz187/voicetask/pkg/clog"
)

var (
	cli = kingpin.New("voicetask", "Voice-driven task manager")

	serverURL = cli.Flag("server", "Send command, agent and watch requests to a running server instead of the local task file").Envar("VOICETASK_SERVER").String()
	noColor   = cli.Flag("no-color", "Disable colored output").Bool()
	baseDir   = cli.Flag("base-dir", "Directory holding the task file (local storage)").String()
	tasksFile = cli.Flag("tasks-file", "Task file name, .json or .yaml").String()

	serveCmd = cli.Command("serve", "Start the HTTP server")

	addCmd      = cli.Command("add", "Add a task")
	addText     = addCmd.Arg("text", "Task text").Required().Strings()
	addPriority = addCmd.Flag("priority", "high, medium or low").Short('p').Default("medium").Enum("high", "medium", "low")
	addCategory = addCmd.Flag("category", "client, business or personal").Short('c').Enum("client", "business", "personal")

	listCmd       = cli.Command("list", "List tasks")
	listPriority  = listCmd.Flag("priority", "Only show this priority").Short('p').Enum("high", "medium", "low")
	listCategory  = listCmd.Flag("category", "Only show this category").Short('c').Enum("client", "business", "personal")
	listPending   = listCmd.Flag("pending", "Only show pending tasks").Bool()
	listCompleted = listCmd.Flag("completed", "Only show completed tasks").Bool()

	nextCmd = cli.Command("next", "Show the task to work on next")

	toggleCmd = cli.Command("toggle", "Toggle a task between pending and completed")
	toggleRef = toggleCmd.Arg("task", "Task ID or description").Required().Strings()

	doneCmd = cli.Command("done", "Mark a task as completed")
	doneRef = doneCmd.Arg("task", "Task ID or description").Required().Strings()

	updateCmd      = cli.Command("update", "Update a task")
	updateRef      = updateCmd.Arg("task", "Task ID or description").Required().Strings()
	updateText     = updateCmd.Flag("text", "New text").String()
	updatePriority = updateCmd.Flag("priority", "New priority").Short('p').Enum("high", "medium", "low")
	updateCategory = updateCmd.Flag("category", "New category").Short('c').Enum("client", "business", "personal")

	deleteCmd = cli.Command("delete", "Delete a task")
	deleteRef = deleteCmd.Arg("task", "Task ID or description").Required().Strings()

	clearCmd       = cli.Command("clear", "Delete all tasks")
	clearCompleted = clearCmd.Flag("completed", "Only delete completed tasks").Bool()
	clearYes       = clearCmd.Flag("yes", "Do not ask for confirmation").Short('y').Bool()

	statsCmd = cli.Command("stats", "Show task statistics")

	searchCmd     = cli.Command("search", "Fuzzy search task text")
	searchPattern = searchCmd.Arg("pattern", "Characters to look for").Required().Strings()

	commandCmd  = cli.Command("command", "Run a spoken command given as text")
	commandText = commandCmd.Arg("text", "Utterance").Required().Strings()
	commandMode = commandCmd.Flag("mode", "command or braindump").Short('m').Default("command").Enum("command", "braindump")

	braindumpCmd  = cli.Command("braindump", "Extract tasks from free-form text")
	braindumpText = braindumpCmd.Arg("text", "Text, or - to read stdin").Required().Strings()

	agentCmd     = cli.Command("agent", "Let the agent handle a request with the task tools")
	agentRequest = agentCmd.Arg("request", "Request").Strings()
	agentTools   = agentCmd.Flag("tools", "List the available tools").Bool()

	voiceCmd  = cli.Command("voice", "Transcribe an audio file and run it as a command")
	voiceFile = voiceCmd.Arg("file", "Audio file").Required().ExistingFile()
	voiceMode = voiceCmd.Flag("mode", "command or braindump").Short('m').Default("command").Enum("command", "braindump")

	helpCmd         = cli.Command("ask", "Ask how to use the task manager")
	helpQuestion    = helpCmd.Arg("question", "Question").Strings()
	helpSuggestions = helpCmd.Flag("suggestions", "Suggest what to do based on the current tasks").Bool()

	watchCmd   = cli.Command("watch", "Print events from a running server")
	watchTypes = watchCmd.Flag("type", "Only show this event type").Strings()

	migrateCmd    = cli.Command("migrate", "Normalize a task file written by an older version")
	migrateBackup = migrateCmd.Flag("backup", "Copy the task file before rewriting it").Default("true").Bool()

	vapidCmd = cli.Command("vapid", "Generate a VAPID key pair for push notifications")
)

func main() {
	cmd := kingpin.MustParse(cli.Parse(os.Args[1:]))
	if *noColor {
		color.NoColor = true
	}

	env, err := config.LoadEnv()
	if err != nil {
		fatal(err)
	}
	if *baseDir != "" {
		env.BaseDir = *baseDir
	}
	if *tasksFile != "" {
		env.TasksFile = *tasksFile
		if err := env.Validate(); err != nil {
			fatal(err)
		}
	}
	slog.SetDefault(clog.NewLogger(os.Stderr, env.Env, env.SlogLevel()))

	if cmd == serveCmd.FullCommand() {
		if err := runServe(env); err != nil {
			fatal(err)
		}
		return
	}

	ctx := context.Background()
	if err := run(ctx, cmd, env); err != nil {
		fatal(err)
	}
}

func run(ctx context.Context, cmd string, env *config.Env) error {
	switch cmd {
	case vapidCmd.FullCommand():
		return runVAPID()
	case watchCmd.FullCommand():
		return runWatch(ctx, env, *watchTypes)
	}

	if *serverURL != "" {
		switch cmd {
		case commandCmd.FullCommand():
			return runRemoteCommand(ctx, env, join(*commandText), *commandMode)
		case braindumpCmd.FullCommand():
			text, err := readText(*braindumpText)
			if err != nil {
				return err
			}
			return runRemoteCommand(ctx, env, text, "braindump")
		case agentCmd.FullCommand():
			return runRemoteAgent(ctx, env, join(*agentRequest), *agentTools)
		}
	}

	a, err := newApp(ctx, env)
	if err != nil {
		return err
	}
	if cmd == migrateCmd.FullCommand() {
		return a.migrate(ctx, *migrateBackup)
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	switch cmd {
	case addCmd.FullCommand():
		return runAdd(ctx, store, join(*addText), *addPriority, *addCategory)
	case listCmd.FullCommand():
		return runList(store, *listPriority, *listCategory, *listPending, *listCompleted)
	case nextCmd.FullCommand():
		return runNext(store)
	case toggleCmd.FullCommand():
		return runToggle(ctx, store, join(*toggleRef))
	case doneCmd.FullCommand():
		return runDone(ctx, store, join(*doneRef))
	case updateCmd.FullCommand():
		return runUpdate(ctx, store, join(*updateRef), *updateText, *updatePriority, *updateCategory)
	case deleteCmd.FullCommand():
		return runDelete(ctx, store, join(*deleteRef))
	case clearCmd.FullCommand():
		return runClear(ctx, store, *clearCompleted, *clearYes)
	case statsCmd.FullCommand():
		printStats(store.Stats())
		return nil
	case searchCmd.FullCommand():
		return runSearch(store, join(*searchPattern))
	case commandCmd.FullCommand():
		printResult(a.router(store).ProcessCommand(ctx, join(*commandText), parseMode(*commandMode), store.List()))
		return nil
	case braindumpCmd.FullCommand():
		text, err := readText(*braindumpText)
		if err != nil {
			return err
		}
		printResult(a.router(store).ProcessCommand(ctx, text, parseMode("braindump"), store.List()))
		return nil
	case agentCmd.FullCommand():
		return runAgent(ctx, a.executor(store), join(*agentRequest), *agentTools)
	case voiceCmd.FullCommand():
		return runVoice(ctx, a, store, *voiceFile, *voiceMode)
	case helpCmd.FullCommand():
		printText(a.help(ctx, store, join(*helpQuestion), *helpSuggestions))
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func join(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
	os.Exit(1)
}
