// Command facetrack watches a camera for faces, keeps the sharpest face crop
// and streams presence events to a dashboard and an optional MQTT broker.
package main

func main() {
	Execute()
}
