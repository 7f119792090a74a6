package constants

// 사용자 인터페이스 메시지
const (
	// 공지
	MsgChallengeOpenedTitle  = "%s has opened!"
	MsgChallengeClosesAt     = "Closes at: <t:%d:s>"
	MsgChallengeOpenedFooter = "Use `/challenge` to view the challenge and `/submit-flag` to submit a flag."
	MsgChallengeClosedTitle  = "%s has closed!"
	MsgChallengeSolvers      = "The following players solved the challenge: %s"
	MsgChallengeNoSolvers    = "No one managed to solve the challenge!"
	MsgChallengeSolved       = "%s <@%s> solved **%s**!"
	MsgPingEveryone          = "@everyone"
	MsgPingRole              = "<@&%s>"

	// 챌린지 관련
	MsgChallengeCreated       = "Challenge **%s** created. It is hidden until you set its status."
	MsgChallengeUpdated       = "Challenge **%s** updated."
	MsgChallengeStatusUpdated = "Status of **%s** updated."
	MsgChallengeDeleted       = "Challenge **%s** deleted."
	MsgChallengeHidden        = "Challenge **%s** is now hidden."
	MsgChallengeVisible       = "Challenge **%s** is now visible."
	MsgChallengeNotFound      = "There are no challenges by the name `%s`."
	MsgChallengeGone          = "That challenge no longer exists."
	MsgNoActiveChallenges     = "There are no active challenges right now."
	MsgSelectChallenge        = "Select a challenge:"
	MsgChallengeHiddenNotice  = "This challenge is hidden from players."
	MsgChallengeOpensAt       = "Opens at"
	MsgChallengeClosesAtLabel = "Closes at"
	MsgChallengeConnect       = "Connect"
	MsgChallengeFiles         = "Files"
	MsgChallengeNotSet        = "Not set"

	// 제출 관련
	MsgFlagCorrect        = "%s Correct! You solved **%s**."
	MsgFlagIncorrect      = "%s Incorrect flag for **%s**."
	MsgFlagAlreadySolved  = "You have already solved **%s**."
	MsgSubmissionsTitle   = "Submissions for %s"
	MsgSubmissionsEmpty   = "No submissions yet."
	MsgSubmissionsSummary = "<@%s>: %d submission(s), %s"
	MsgSubmissionsSolved  = "solved"
	MsgSubmissionsPending = "not solved"
	MsgSubmissionDeleted  = "Submission deleted."
	MsgSelectUser         = "Select a user to inspect"
	MsgSelectSubmission   = "Select a submission to delete"

	// 서버 설정
	MsgSettingsUpdated = "Server settings updated."
	MsgSettingsTitle   = "Server settings"

	// 권한 및 쿨다운
	MsgInsufficientPermissions = "❌ You need to be a challenge author to do that."
	MsgAdministratorRequired   = "❌ You need the Administrator permission to do that."
	MsgCooldown                = "⏰ Slow down! Try again in %.1f seconds."
	MsgGuildOnly               = "This command can only be used in a server."

	// 기본 응답
	MsgUptime        = "Uptime: %s"
	MsgInternalError = "Something went wrong. Reference: `%s`"
)

// 버튼과 모달 라벨
const (
	LabelSubmitFlag      = "Submit flag"
	LabelViewSubmissions = "View submissions"
	LabelHide            = "Hide"
	LabelUnhide          = "Unhide"
	LabelSetStatus       = "Set status"
	LabelEdit            = "Edit"
	LabelDelete          = "Delete"
	LabelCreateChallenge = "Create new challenge"

	ModalNewChallenge    = "New challenge"
	ModalEditChallenge   = "Edit challenge"
	ModalChallengeStatus = "Challenge status"
	ModalSubmitFlag      = "Submit flag"
	ModalDeleteChallenge = "Delete challenge"

	FieldName        = "Name"
	FieldDescription = "Description"
	FieldFlag        = "Flag"
	FieldURL         = "Connection URL"
	FieldFiles       = "Files (<filename> <URL>, one per line)"
	FieldStart       = "Start (unix seconds, blank = now)"
	FieldFinish      = "Finish (unix seconds)"
	FieldHidden      = "Hidden (yes/no)"
	FieldConfirmName = "Type the challenge name to confirm"
)

// 에러 코드와 메시지 매핑
var ErrorMessages = map[string]string{
	"INVALID_NAME":             "Challenge names must be 3 to 32 characters long.",
	"INVALID_FLAG":             "Flags must be 2 to 32 characters long.",
	"INVALID_URL":              "Connection URLs must be at most 64 characters long.",
	"INVALID_FILES":            "Files must be written as `<filename> <URL>`, one per line.",
	"INVALID_TIMESTAMP":        "Timestamps must be unix epoch seconds.",
	"INVALID_HIDDEN":           "Hidden must be `yes` or `no`.",
	"EMPTY_FLAG":               "Please enter a flag.",
	"DUPLICATE_NAME":           "A challenge with that name already exists.",
	"CHALLENGE_NOT_FOUND":      MsgChallengeGone,
	"SUBMISSION_NOT_FOUND":     "That submission no longer exists.",
	"CONFIRMATION_FAILED":      "The name you typed does not match. Nothing was deleted.",
	"INSUFFICIENT_PERMISSIONS": MsgInsufficientPermissions,
}
