package intacct

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Credentials holds the gateway authentication material. SenderID and
// SenderPassword authenticate the control block; CompanyID, UserID and
// UserPassword authenticate the login itself. LocationID, when set, narrows
// top-level logins to that subsidiary.
type Credentials struct {
	CompanyID      string
	SenderID       string
	SenderPassword string
	UserID         string
	UserPassword   string
	LocationID     string
	UseLocations   bool
}

// Function is one tagged operation inside a request envelope.
type Function struct {
	ControlID string
	Body      *Element
}

// controlBlock builds the <control> header shared by every request.
func controlBlock(creds Credentials, now time.Time) *Element {
	return El("control",
		Text("senderid", creds.SenderID),
		Text("password", creds.SenderPassword),
		Text("controlid", strconv.FormatInt(now.Unix(), 10)),
		Text("uniqueid", "false"),
		Text("dtdversion", "3.0"),
		Text("includewhitespace", "false"),
	)
}

// loginEnvelope builds the getAPISession request for one scope. The
// locationid element is only present for scoped logins.
func loginEnvelope(creds Credentials, locationID string, now time.Time) *Element {
	login := El("login",
		Text("userid", creds.UserID),
		Text("companyid", creds.CompanyID),
		Text("password", creds.UserPassword),
	)
	login.AppendText("locationid", locationID)

	return El("request",
		controlBlock(creds, now),
		El("operation",
			El("authentication", login),
			El("content",
				El("function", El("getAPISession")).Attr("controlid", uuid.NewString()),
			),
		),
	)
}

// sessionEnvelope wraps one or more functions in a session-authenticated
// request. When atomic is set the operation carries transaction="true" and
// the gateway applies all functions or none.
func sessionEnvelope(creds Credentials, sessionID string, functions []Function, atomic bool, now time.Time) *Element {
	content := El("content")
	for _, fn := range functions {
		content.Append(El("function", fn.Body).Attr("controlid", fn.ControlID))
	}

	operation := El("operation",
		El("authentication", Text("sessionid", sessionID)),
		content,
	)
	if atomic {
		operation.Attr("transaction", "true")
	}

	return El("request", controlBlock(creds, now), operation)
}
