package models

type OTPRecord struct {
	UserID      string `json:"userId"`
	PhoneNumber string `json:"phoneNumber"`
	Verified    bool   `json:"veryOTP"`
}

type SendOTPRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required"`
}

type VerifyOTPRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required"`
	OTP         string `json:"otp" validate:"required,len=6"`
	UserID      string `json:"userId"`
}

// VerifyOTPResponse carries both the typed status and the legacy message.
type VerifyOTPResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"verificationStatus,omitempty"`
	Message string `json:"message"`
}
