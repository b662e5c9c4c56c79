package httpclient

import "net/url"

// Marketplace API routes.
const (
	PathAllPosts         = "/api/getAllPosts"
	PathVerifiedPosts    = "/api/getVerifyAllPosts"
	PathCreatePost       = "/api/createPost"
	PathSendOTP          = "/api/send-otp"
	PathVerifyOTP        = "/api/verify-otp"
	PathCreateProfile    = "/api/createProfile"
	PathCreateProfilePic = "/api/createProfilePhoto"
)

// UserPosts is the one contract used for a user's own posts. The response
// may be a bare array or the standard envelope.
func UserPosts(userID string) string {
	return PathAllPosts + "?userId=" + url.QueryEscape(userID)
}

func EditPost(postID string) string {
	return "/api/editPost/" + url.PathEscape(postID)
}

func DeletePost(userID, postID string) string {
	return "/api/deletePost/" + url.PathEscape(userID) + "/" + url.PathEscape(postID)
}

func OTPStatus(userID string) string {
	return "/api/get-otp/" + url.PathEscape(userID)
}

func Profile(userID string) string {
	return "/api/getProfile/" + url.PathEscape(userID)
}

func UpdateProfile(userID string) string {
	return "/api/updateProfile/" + url.PathEscape(userID)
}

func ProfilePhoto(userID string) string {
	return "/api/getProfilePhoto/" + url.PathEscape(userID)
}

func EditProfilePhoto(userID string) string {
	return "/api/editProfilePhoto/" + url.PathEscape(userID)
}
