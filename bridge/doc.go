// Package bridge routes rendered templates to the right execution
// context.
//
// Primary templates run directly in JXA. Bridge templates run in the Omni
// Automation context, which is reachable only from inside a running JXA
// script through Application("OmniFocus").evaluateJavascript. The
// dispatcher renders the bridge script, wraps it in the result envelope,
// serializes the whole script as a string literal and embeds that literal
// in a primary script. The boundary between the two layers is a second
// serialization boundary and goes through the same serializer as every
// parameter.
//
// Writes made through the bridge are guaranteed visible only to reads
// made through the bridge. Callers that must verify a bridge write should
// verify with a bridge template.
package bridge
