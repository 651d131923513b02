package config

// Schema is the JSON schema for validating deployment files.
// Action objects other than uploads are accepted here and dropped later
// during translation.
const Schema = `{
    "$schema": "http://json-schema.org/draft-07/schema#",
    "type": "object",
    "properties": {
        "user": {
            "type": "string",
            "minLength": 1
        },
        "host": {
            "type": "string",
            "minLength": 1
        },
        "port": {
            "type": "integer",
            "minimum": 1,
            "maximum": 65535
        },
        "password": {
            "type": "string"
        },
        "known-hosts": {
            "type": "string"
        },
        "timeout": {
            "type": "integer",
            "minimum": 1
        },
        "chunk-size": {
            "type": "integer",
            "minimum": 1
        },
        "encoding": {
            "type": "string"
        },
        "pre-actions": {
            "type": ["array", "null"],
            "items": {
                "type": "string"
            }
        },
        "actions": {
            "type": ["array", "null"],
            "items": {
                "anyOf": [
                    {
                        "type": "string"
                    },
                    {
                        "type": "object",
                        "if": {
                            "properties": {
                                "type": {"const": "upload"}
                            },
                            "required": ["type"]
                        },
                        "then": {
                            "properties": {
                                "from": {"type": "string", "minLength": 1},
                                "to": {"type": "string", "minLength": 1}
                            },
                            "required": ["from", "to"]
                        }
                    }
                ]
            }
        },
        "post-actions": {
            "type": ["array", "null"],
            "items": {
                "type": "string"
            }
        }
    },
    "required": ["user", "host"]
}`
