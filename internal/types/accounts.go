package types

// RegistrationInput is the body of a subscriber sign-up
type RegistrationInput struct {
	Email     string `json:"email" binding:"required,email,max=200"`
	Username  string `json:"username" binding:"required,username"`
	Password1 string `json:"password1" binding:"required"`
	Password2 string `json:"password2" binding:"required"`
}

// LoginInput is the body of a login request
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AccountUpdateInput changes the editable fields of the current account.
// DateOfBirth uses YYYY-MM-DD; an empty string clears it.
type AccountUpdateInput struct {
	Email       string  `json:"email" binding:"required,email,max=200"`
	Username    string  `json:"username" binding:"required,username"`
	DateOfBirth *string `json:"date_of_birth" binding:"omitempty,max=10"`
}

// PasswordChangeInput changes the password of a logged-in account
type PasswordChangeInput struct {
	OldPassword  string `json:"old_password" binding:"required"`
	NewPassword1 string `json:"new_password1" binding:"required"`
	NewPassword2 string `json:"new_password2" binding:"required"`
}

// ForgotPasswordInput requests a reset link
type ForgotPasswordInput struct {
	Email string `json:"email" binding:"required,email"`
}

// PasswordResetInput sets a new password from a reset link
type PasswordResetInput struct {
	NewPassword1 string `json:"new_password1" binding:"required"`
	NewPassword2 string `json:"new_password2" binding:"required"`
}

// SuperuserInput creates an administrator from the command line
type SuperuserInput struct {
	Email    string
	Username string
	Password string
}
