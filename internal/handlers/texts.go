package handlers

// Reply keyboard buttons. Their text arrives back as a plain message.
const (
	menuList     = "💊 My medications"
	menuSettings = "⚙️ Settings"
	menuNames    = "📋 Names"
)

// Inline buttons under a medication card.
const (
	btnTake    = "Take dose"
	btnHistory = "History"
	btnShare   = "Share"
	btnDelete  = "Delete"
	btnSave    = "Save"
	btnCancel  = "Cancel"
)

const (
	txtWelcome = "Hi! I keep track of your tablets and remind you when a dose is due.\n\n" +
		"Your user id: %s\n\n" + txtHelp

	txtHelp = "Commands:\n" +
		"/add Name;total;doses per day;tablets per dose;HH:MM,HH:MM\n" +
		"/edit N Name;total;doses per day;tablets per dose;HH:MM,...\n" +
		"/list - your medications\n" +
		"/take N - log a dose of medication N\n" +
		"/history N, /share N, /delete N\n" +
		"/names - names you have used\n" +
		"/settings, /autolog on|off, /sound on|off, /notify on|off, /tz Europe/Berlin\n" +
		"/clear - delete all your data\n\n" +
		"Or send a photo of the prescription label."

	txtAddUsage  = "Format: /add Name;total tablets;doses per day;tablets per dose;HH:MM,HH:MM\nExample: /add Vitamin D;30;1;1;09:00"
	txtEditUsage = "Format: /edit N Name;total tablets;doses per day;tablets per dose;HH:MM,HH:MM"
	txtNeedIndex = "Which one? Send the number from /list, e.g. /take 1"
	txtNoSuchMed = "No medication with that number. See /list."
	txtEmpty     = "No medications yet. Add one with /add or send a label photo."
	txtNoNames   = "No medication names yet."
	txtUnknown   = "I did not understand that. Send /help for the list of commands."

	txtAdded   = "Added %s."
	txtUpdated = "Updated %s."
	txtDeleted = "Deleted %s."
	txtLogged  = "Dose logged for %s."
	txtCleared = "All your data has been deleted. Send /start to begin again."

	txtCompleted = "This course is already complete."
	txtQuotaMet  = "All doses for today are already logged."
	txtNoHistory = "No doses logged for %s yet."

	txtSettings = "Settings:\nReminders: %s\nSound: %s\nAuto dose logging: %s\nTime zone: %s"
	txtOnOff    = "Send on or off."
	txtBadTZ    = "Unknown time zone. Use an IANA name like Europe/Berlin or an offset like +03:00."
	txtTZSet    = "Time zone set to %s."

	txtOCRDisabled = "Label scanning is not available. Enter the medication with /add."
	txtOCRFailed   = "Could not read the label. Enter the medication manually with /add."
	txtDraft       = "I read this from the label:\n%s\n\nSave it, or send a corrected /add command."
	txtDraftBad    = "I read this from the label, but something is missing (%s):\n%s\n\nSend a corrected /add command."
	txtNoDraft     = "Nothing to save. Send a label photo first."
	txtDraftDrop   = "Discarded."
)
