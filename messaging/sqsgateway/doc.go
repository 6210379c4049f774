// Package sqsgateway connects the dispatcher to Amazon SQS.
//
// Gateway sends JSON messages, optionally tagged with the core queue as reply address.
// Consumer long-polls the core queue one message at a time, hands each message to the
// dispatcher and deletes it only when dispatching succeeded, leaving failures to the queue's
// redelivery and dead-letter policy.
package sqsgateway
