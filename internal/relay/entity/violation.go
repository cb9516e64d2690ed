package entity

// Violation is a rejected input. Its text is safe to show to the caller.
type Violation string

func (v Violation) Error() string {
	return string(v)
}

const (
	ViolationPhoneRequired   Violation = "Phone number is required."
	ViolationPhoneInvalid    Violation = "Please provide a valid 10-digit phone number."
	ViolationCodeRequired    Violation = "Verification code is required."
	ViolationSpam            Violation = "Spam detected."
	ViolationTooFast         Violation = "Submission too fast."
	ViolationNoInteraction   Violation = "No user interaction detected."
	ViolationFieldsRequired  Violation = "All fields are required."
	ViolationName            Violation = "Name contains invalid characters or format."
	ViolationMessageTooLong  Violation = "Message cannot be longer than 140 characters."
	ViolationMessageNonASCII Violation = "Message contains non-ASCII or non-printable characters."
	ViolationMessageTooShort Violation = "Message is too short."
	ViolationInappropriate   Violation = "Message contains inappropriate content."
	ViolationRepeatedChars   Violation = "Message contains excessive repeated characters."
	ViolationUppercase       Violation = "Message contains excessive uppercase text."
)
