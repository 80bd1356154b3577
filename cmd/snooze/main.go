// Snooze - tag-driven start/stop for cloud resources.
// Tag it. Schedule it. Sleep.
package main

func main() {
	Execute()
}
