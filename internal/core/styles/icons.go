package styles

// Tip: To find icons use https://github.com/loichyan/nerdfix

var (
	IconGithub    = " "
	IconGitlab    = " "
	IconGitBranch = "" //
	IconGit       = "" //
	IconBrain     = " "
	IconWorkspace = "\U000F0C4F" // 󰱏
)

// Tree icons
var (
	IconFolderOpen   = ""  //
	IconFolderClosed = ""  //
	IconMergeRequest = "" //
)

// Review status icons
var (
	IconQueued    = "○"
	IconRunning   = "◐"
	IconSucceeded = "✓"
	IconFailed    = "✗"
	IconCanceled  = "⊘"
	IconPosted    = "↑"
)

// Notification icons
var (
	IconNotifyInfo    = "ℹ"
	IconNotifyWarning = "⚠"
	IconNotifyError   = "✗"
)
