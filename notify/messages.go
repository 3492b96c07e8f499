package notify

import "fmt"

const DefaultEstimatedWait = 15

func TableReadyMessage(guestName, tableNumber, restaurant string) string {
	if tableNumber == "" {
		return fmt.Sprintf("Hi %s! Your table is ready at %s. Please proceed to the host stand.", guestName, restaurant)
	}
	return fmt.Sprintf("Hi %s! Your table #%s is ready at %s. Please proceed to the host stand.", guestName, tableNumber, restaurant)
}

func WaitlistConfirmationMessage(guestName string, partySize, estimatedWait int) string {
	if estimatedWait <= 0 {
		estimatedWait = DefaultEstimatedWait
	}
	return fmt.Sprintf("Hi %s! You've been added to the waitlist for %d guests. Estimated wait: ~%d minutes. We'll notify you when your table is ready.",
		guestName, partySize, estimatedWait)
}
