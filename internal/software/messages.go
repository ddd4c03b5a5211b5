package software

// Hub messages posted while the screen works in the background.
const (
	MsgDownloadingPackages = "Downloading package metadata..."
	MsgDownloadingGroups   = "Downloading group metadata..."
	MsgNoSource            = "No installation source available"
	MsgChecking            = "Checking software dependencies..."
	MsgCheckFailed         = "Error checking software dependencies"
)

// Status lines shown for the screen.
const (
	StatusCheckError    = "Error checking software selection"
	StatusNotSetUp      = "Installation source not set up"
	StatusSourceChanged = "Source changed - please verify"
	StatusCustom        = "Custom software selected"
	StatusNothing       = "Nothing selected"
)

// WarningCheckFailed is the banner shown while the last check failed.
const WarningCheckFailed = "Error checking software dependencies.  Click for details."

// ErrorDialogLabel introduces the conflict details in the error dialog.
const ErrorDialogLabel = "The following software marked for installation has errors.  " +
	"This is likely caused by an error with\nyour installation source.  " +
	"You can change your installation source or quit the installer."
