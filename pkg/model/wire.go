package model

import "fmt"

// Wire templates. These literal formats are part of the protocol: existing
// clients match on them, so interoperability tests pin them exactly.
const (
	// NamePrompt is the admission handshake line sent right after accept.
	NamePrompt = "Por favor ingrese un nombre de usuario: "

	// ErrUserNotFound is the reply to /privado with an unknown target.
	ErrUserNotFound = "El usuario no existe."

	// PrivateUsage is the reply to /privado without a target name.
	PrivateUsage = "Uso: /privado <usuario>"

	// PartnerGone is sent when a private message targets a partner that
	// already left; the link is dropped at the same time.
	PartnerGone = "Tu interlocutor se fue del chat."
)

// JoinNotice renders the system notice broadcast when a user is admitted.
func JoinNotice(nickname string) string {
	return nickname + " se unio al chat."
}

// LeaveNotice renders the system notice broadcast when a user departs.
func LeaveNotice(nickname string) string {
	return nickname + " se fue del chat."
}

// DirectoryEntry renders one /usuarios reply line.
func DirectoryEntry(nickname string) string {
	return fmt.Sprintf("El usuario %s esta conectado.", nickname)
}

// BroadcastLine renders a room message.
func BroadcastLine(nickname, body string) string {
	return fmt.Sprintf("%s: %s", nickname, body)
}

// PrivateLine renders a private message; both ends of the link receive it.
func PrivateLine(nickname, body string) string {
	return fmt.Sprintf("%s(privado): %s", nickname, body)
}

// PrivateConfirm renders the confirmation each side receives when a
// private link is established, naming the other end.
func PrivateConfirm(other string) string {
	return "Te has conectado a un chat privado con " + other
}
